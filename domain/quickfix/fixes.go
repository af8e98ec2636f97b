package quickfix

import (
	"strings"

	"github.com/artpar/calloutlint/domain/callout"
)

// DefaultDepth is the quote depth of synthesized top-level callouts.
const DefaultDepth = 1

// InsertRoot prepends a root callout with placeholder content.
func InsertRoot(rootType string) QuickFix {
	block := renderBlock(rootType, DefaultDepth, []string{"Entry content"})
	return New("Add missing "+rootType+" callout", KindInsertRoot, func(text string) string {
		eol := lineEnding(text)
		b := withEnding(block, eol)
		if strings.TrimSpace(text) == "" {
			return b + eol
		}
		return b + eol + eol + text
	})
}

// InsertChild adds a child callout. With nested set and a root present the
// child goes right after the root's contiguous run, one level deeper;
// otherwise it is appended to the document.
func InsertChild(childType string, root *Anchor, nested bool) QuickFix {
	return insertBlock("Add missing "+childType+" callout", KindInsertChild,
		childType, []string{"Content"}, root, nested)
}

// InsertMetrics adds a metrics callout holding MetricPlaceholders, placed the
// same way as InsertChild.
func InsertMetrics(metricsType string, root *Anchor, nested bool) QuickFix {
	return insertBlock("Add "+metricsType+" callout", KindInsertMetrics,
		metricsType, MetricPlaceholders, root, nested)
}

func insertBlock(title string, kind Kind, typ string, body []string, root *Anchor, nested bool) QuickFix {
	if root == nil || !nested {
		depth := DefaultDepth
		if root != nil {
			depth = root.Depth
		}
		block := renderBlock(typ, depth, body)
		return New(title, kind, func(text string) string {
			return appendToDocument(text, block)
		})
	}

	anchor := *root
	block := renderBlock(typ, anchor.Depth+1, body)
	return New(title, kind, func(text string) string {
		start := anchor.locate(text)
		if start < 0 {
			return text
		}
		end := runEnd(text, start, anchor.Depth)
		eol := lineEnding(text)
		return text[:end] + eol + withEnding(block, eol) + text[end:]
	})
}

// MoveIntoRoot moves block b, found in text, to just below root's opening
// line, re-prefixed one level deeper than root. A one-line root at the end of
// the text gets the block appended after it instead.
func MoveIntoRoot(text string, b callout.Block, root Anchor) QuickFix {
	src := b.Source(text)
	span := b.Span
	from := b.Depth
	title := "Move " + b.Type + " callout into " + root.Type

	return New(title, KindMoveIntoRoot, func(text string) string {
		if src == "" || span.End > len(text) || text[span.Start:span.End] != src {
			return text
		}
		rootStart := root.locate(text)
		if rootStart < 0 || (rootStart >= span.Start && rootStart < span.End) {
			return text
		}

		cut := span.End
		switch {
		case strings.HasPrefix(text[cut:], "\r\n"):
			cut += 2
		case strings.HasPrefix(text[cut:], "\n"):
			cut++
		}
		rest := text[:span.Start] + text[cut:]
		if rootStart >= cut {
			rootStart -= cut - span.Start
		}

		depth := root.Depth + 1
		moved := reprefix(src, from, depth)
		eol := lineEnding(text)

		nl := strings.IndexByte(rest[rootStart:], '\n')
		if nl < 0 {
			return rest + eol + moved
		}
		at := rootStart + nl + 1
		insert := moved + eol
		if root.Depth > 0 && absorbs(rest[at:], depth) {
			insert += strings.TrimRight(callout.MarkerPrefix(root.Depth), " ") + eol
		}
		return rest[:at] + insert + rest[at:]
	})
}

// reprefix replaces the first from quote markers of every line with depth
// markers.
func reprefix(src string, from, depth int) string {
	prefix := callout.MarkerPrefix(depth)
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		cr := strings.HasSuffix(l, "\r")
		l = strings.TrimSuffix(l, "\r")
		body := l
		if from > 0 {
			body = callout.StripMarkers(l, from)
		}
		if strings.TrimSpace(body) == "" {
			l = strings.TrimRight(prefix, " ")
		} else {
			l = prefix + body
		}
		if cr {
			l += "\r"
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}

// absorbs reports whether the first line of rest would continue a block at
// depth rather than end it.
func absorbs(rest string, depth int) bool {
	line := rest
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return false
	}
	if op, ok := callout.ParseOpening(line); ok && op.Depth <= depth {
		return false
	}
	return callout.QuoteDepth(line) >= depth
}
