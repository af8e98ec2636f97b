// Package diagnostic provides validation result value types and pure helpers
// for positions, ordering and quick-fix application.
package diagnostic

import (
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/artpar/calloutlint/domain/callout"
	"github.com/artpar/calloutlint/domain/quickfix"
	"github.com/artpar/calloutlint/domain/rule"
)

// Category groups results by the check that produced them.
type Category string

const (
	CategoryMissingRoot     Category = "missing-root"
	CategoryDuplicateRoot   Category = "duplicate-root"
	CategoryMissingChild    Category = "missing-child"
	CategoryMissingMetrics  Category = "missing-metrics"
	CategoryImproperNesting Category = "improper-nesting"
	CategoryBlockContent    Category = "block-content"
	CategoryRule            Category = "rule"
)

// Position is a 0-based line and rune column.
type Position struct {
	Line int
	Col  int
}

// Range is a start/end position pair.
type Range struct {
	Start Position
	End   Position
}

// Result is one validation finding (immutable value type).
type Result struct {
	ID          string
	Severity    rule.Severity
	Category    Category
	Message     string
	RuleID      string // Source rule; structural checks use "<structure>.<check>"
	StructureID string
	Priority    int
	Span        callout.Span
	Range       Range
	QuickFixes  []quickfix.QuickFix
}

// ResultID returns the deterministic id "<rule>-<start>-<end>".
func ResultID(ruleID string, span callout.Span) string {
	return ruleID + "-" + strconv.Itoa(span.Start) + "-" + strconv.Itoa(span.End)
}

// NewResult builds a result anchored at span, resolving its range through idx.
func NewResult(ruleID string, sev rule.Severity, cat Category, msg string, span callout.Span, idx *LineIndex) Result {
	return Result{
		ID:       ResultID(ruleID, span),
		Severity: sev,
		Category: cat,
		Message:  msg,
		RuleID:   ruleID,
		Span:     span,
		Range:    Range{Start: idx.Position(span.Start), End: idx.Position(span.End)},
	}
}

// LineIndex converts byte offsets into line/column positions.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Position returns the position of offset, clamped to the text.
func (x *LineIndex) Position(offset int) Position {
	if offset <= 0 {
		return Position{}
	}
	if offset > len(x.text) {
		offset = len(x.text)
	}
	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	start := x.starts[line]
	return Position{Line: line, Col: utf8.RuneCountInString(x.text[start:offset])}
}

// Sort orders results by severity rank, then priority. Equal keys keep their
// discovery order.
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Severity.Rank(), results[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return results[i].Priority < results[j].Priority
	})
}

// ApplyQuickFix applies the fixIndex-th fix of r to text. An index out of
// range returns text unchanged.
func ApplyQuickFix(text string, r Result, fixIndex int) string {
	if fixIndex < 0 || fixIndex >= len(r.QuickFixes) {
		return text
	}
	return r.QuickFixes[fixIndex].Apply(text)
}

// HasErrors reports whether any result has error severity.
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Severity == rule.SeverityError {
			return true
		}
	}
	return false
}

// Find returns the result with the given id.
func Find(results []Result, id string) (Result, bool) {
	for _, r := range results {
		if r.ID == id {
			return r, true
		}
	}
	return Result{}, false
}

// Count tallies results by severity.
func Count(results []Result) map[rule.Severity]int {
	out := make(map[rule.Severity]int, 3)
	for _, r := range results {
		out[r.Severity]++
	}
	return out
}
