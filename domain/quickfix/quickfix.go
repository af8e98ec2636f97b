// Package quickfix provides text-rewrite actions attached to diagnostics.
// Every fix is a pure function of the document text: it closes over the
// context captured when the violation was found and returns the input
// unchanged when that context can no longer be located.
package quickfix

import (
	"strings"

	"github.com/artpar/calloutlint/domain/callout"
)

// Kind identifies what a fix does.
type Kind string

const (
	KindInsertRoot    Kind = "insert-root"
	KindInsertChild   Kind = "insert-child"
	KindInsertMetrics Kind = "insert-metrics"
	KindMoveIntoRoot  Kind = "move-into-root"
)

// QuickFix is a titled text rewrite.
type QuickFix struct {
	Title string
	Kind  Kind

	apply func(text string) string
}

// New creates a fix from a rewrite function.
func New(title string, kind Kind, apply func(string) string) QuickFix {
	return QuickFix{Title: title, Kind: kind, apply: apply}
}

// Apply rewrites text. It never panics; a fix without a function or one that
// fails returns text unchanged.
func (f QuickFix) Apply(text string) (out string) {
	if f.apply == nil {
		return text
	}
	defer func() {
		if recover() != nil {
			out = text
		}
	}()
	return f.apply(text)
}

// Metrics placeholder lines written by InsertMetrics.
var MetricPlaceholders = []string{
	"Sensory Detail: 0",
	"Emotional Recall: 0",
	"Lost Segments: 0",
}

// Anchor locates a block at apply time by its captured start offset and
// opening line.
type Anchor struct {
	Type    string
	Start   int
	Depth   int
	Opening string
}

// AnchorOf captures the anchor of a block found in text.
func AnchorOf(text string, b callout.Block) Anchor {
	src := b.Source(text)
	if nl := strings.IndexByte(src, '\n'); nl >= 0 {
		src = src[:nl]
	}
	return Anchor{Type: b.Type, Start: b.Span.Start, Depth: b.Depth, Opening: strings.TrimSuffix(src, "\r")}
}

// locate returns the line start of the anchor's opening line in text, trying
// the captured offset first and then the first line-aligned occurrence.
func (a Anchor) locate(text string) int {
	if a.Opening == "" {
		return -1
	}
	if a.Start >= 0 && a.Start <= len(text) && strings.HasPrefix(text[a.Start:], a.Opening) && lineAligned(text, a.Start) {
		return a.Start
	}
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], a.Opening)
		if i < 0 {
			return -1
		}
		pos := off + i
		if lineAligned(text, pos) {
			return pos
		}
		off = pos + 1
	}
	return -1
}

func lineAligned(text string, pos int) bool {
	return pos == 0 || text[pos-1] == '\n'
}

// renderBlock renders a callout at depth with body lines. Blank body lines
// keep the quote markers without trailing spaces.
func renderBlock(typ string, depth int, body []string) string {
	prefix := callout.MarkerPrefix(depth)
	lines := make([]string, 0, len(body)+1)
	lines = append(lines, prefix+"[!"+typ+"]")
	for _, l := range body {
		lines = append(lines, strings.TrimRight(prefix+l, " "))
	}
	return strings.Join(lines, "\n")
}

// appendToDocument adds block after the last non-empty line, separated by a
// blank line.
func appendToDocument(text, block string) string {
	eol := lineEnding(text)
	block = withEnding(block, eol)
	trimmed := strings.TrimRight(text, "\r\n")
	if trimmed == "" {
		return block + eol
	}
	return trimmed + eol + eol + block + eol
}

// lineEnding returns "\r\n" when text already uses CRLF line endings.
func lineEnding(text string) string {
	if strings.Contains(text, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func withEnding(s, eol string) string {
	if eol == "\n" {
		return s
	}
	return strings.ReplaceAll(s, "\n", eol)
}

// runEnd returns the offset just past the last line of the contiguous run
// that starts with the opening line at start: lines at the anchor's depth or
// deeper, stopping at a blank line or a tag opening a sibling.
func runEnd(text string, start, depth int) int {
	end := start
	first := true
	for pos := start; pos < len(text); {
		lineEnd := len(text)
		next := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			lineEnd = pos + nl
			next = lineEnd + 1
		}
		line := strings.TrimSuffix(text[pos:lineEnd], "\r")
		if !first {
			if strings.TrimSpace(line) == "" || callout.QuoteDepth(line) < depth {
				break
			}
			if op, ok := callout.ParseOpening(line); ok && op.Depth <= depth {
				break
			}
		}
		first = false
		end = pos + len(line)
		pos = next
	}
	return end
}
