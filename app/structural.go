package app

import (
	"fmt"

	"github.com/artpar/calloutlint/domain/callout"
	"github.com/artpar/calloutlint/domain/diagnostic"
	"github.com/artpar/calloutlint/domain/quickfix"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
)

// BlockCheck inspects the content of individual blocks in a document that
// resolved to a structure. Check returns a message when the block violates
// the check.
type BlockCheck struct {
	ID       string
	Severity rule.Severity
	Check    func(st structure.Structure, b callout.Block) (message string, violated bool)
}

var origin = callout.Span{}

// structural runs the structure-level checks. Fixes capture the original
// text; the forest may come from isolated text with identical offsets.
func (s *ValidationService) structural(text string, f callout.Forest, st structure.Structure, idx *diagnostic.LineIndex) []diagnostic.Result {
	var out []diagnostic.Result
	add := func(id string, sev rule.Severity, cat diagnostic.Category, msg string, span callout.Span, fixes ...quickfix.QuickFix) {
		r := diagnostic.NewResult(id, sev, cat, msg, span, idx)
		r.StructureID = st.ID
		r.QuickFixes = fixes
		out = append(out, r)
	}
	checkID := func(cat diagnostic.Category, suffix string) string {
		id := st.ID + "." + string(cat)
		if suffix != "" {
			id += "." + suffix
		}
		return id
	}

	nested := st.NestingMode == structure.NestingNested
	roots := f.OfType(st.RootType)
	rootIdx := -1
	var root *quickfix.Anchor

	switch len(roots) {
	case 0:
		add(checkID(diagnostic.CategoryMissingRoot, ""), rule.SeverityError, diagnostic.CategoryMissingRoot,
			fmt.Sprintf("Missing root callout [!%s] for structure %s", st.RootType, st.DisplayName()),
			origin, quickfix.InsertRoot(st.RootType))
	default:
		rootIdx = roots[0]
		anchor := quickfix.AnchorOf(text, f.Blocks[rootIdx])
		root = &anchor
		if len(roots) > 1 {
			second := f.Blocks[roots[1]]
			add(checkID(diagnostic.CategoryDuplicateRoot, ""), rule.SeverityError, diagnostic.CategoryDuplicateRoot,
				fmt.Sprintf("Duplicate root callout [!%s]; only one is allowed", st.RootType),
				second.Span)
		}
	}

	for _, typ := range st.RequiredChildren() {
		if f.Has(typ) {
			continue
		}
		add(checkID(diagnostic.CategoryMissingChild, typ), rule.SeverityError, diagnostic.CategoryMissingChild,
			fmt.Sprintf("Missing required callout [!%s]", typ),
			origin, quickfix.InsertChild(typ, root, nested))
	}

	if st.MetricsType != "" && !f.Has(st.MetricsType) {
		add(checkID(diagnostic.CategoryMissingMetrics, ""), rule.SeverityWarning, diagnostic.CategoryMissingMetrics,
			fmt.Sprintf("Missing metrics callout [!%s]", st.MetricsType),
			origin, quickfix.InsertMetrics(st.MetricsType, root, nested))
	}

	if nested && rootIdx >= 0 {
		for i, b := range f.Blocks {
			if b.Type == st.RootType || !st.IsChild(b.Type) || f.IsDescendant(i, rootIdx) {
				continue
			}
			add(checkID(diagnostic.CategoryImproperNesting, ""), rule.SeverityError, diagnostic.CategoryImproperNesting,
				fmt.Sprintf("Improper nesting: [!%s] must be inside [!%s]", b.Type, st.RootType),
				b.Span, quickfix.MoveIntoRoot(text, b, *root))
		}
	}

	for _, check := range s.checks {
		f.Walk(func(_ int, b callout.Block) bool {
			if msg, bad := check.Check(st, b); bad {
				add(checkID(diagnostic.CategoryBlockContent, check.ID), check.Severity, diagnostic.CategoryBlockContent,
					msg, b.Span)
			}
			return true
		})
	}

	return out
}
