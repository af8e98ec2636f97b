package callout

import (
	"strings"
)

// Line is one line of source text. End excludes the line terminator.
type Line struct {
	Start int
	End   int
	Text  string
}

// SplitLines splits text into lines, recording byte offsets.
// Both "\n" and "\r\n" terminators are recognised; a trailing terminator does
// not produce an extra empty line.
func SplitLines(text string) []Line {
	lines := make([]Line, 0, strings.Count(text, "\n")+1)
	start := 0
	for start < len(text) {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			lines = append(lines, Line{Start: start, End: len(text), Text: text[start:]})
			break
		}
		end := start + nl
		if end > start && text[end-1] == '\r' {
			end--
		}
		lines = append(lines, Line{Start: start, End: end, Text: text[start:end]})
		start += nl + 1
	}
	return lines
}

// Opening describes a line that opens a callout.
type Opening struct {
	Type   string
	Title  string
	Prefix string
	Depth  int
}

// ParseOpening reports whether line opens a callout: optional quote markers
// followed by a "[!type]" tag. Only the first tag on a line is considered.
func ParseOpening(line string) (Opening, bool) {
	depth, pos := scanMarkers(line)
	rest := line[pos:]
	if !strings.HasPrefix(rest, "[!") {
		return Opening{}, false
	}

	end := strings.IndexByte(rest, ']')
	if end < 3 {
		return Opening{}, false
	}
	typ := rest[2:end]
	if !validType(typ) {
		return Opening{}, false
	}

	after := rest[end+1:]
	// Fold markers: [!type]+ or [!type]-
	if strings.HasPrefix(after, "+") || strings.HasPrefix(after, "-") {
		after = after[1:]
	}

	return Opening{
		Type:   strings.ToLower(typ),
		Title:  strings.TrimSpace(after),
		Prefix: line[:pos],
		Depth:  depth,
	}, true
}

func validType(typ string) bool {
	for i := 0; i < len(typ); i++ {
		c := typ[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// scanMarkers counts leading quote markers. pos is the offset of the first
// byte after the markers and any whitespace that follows them.
func scanMarkers(line string) (depth, pos int) {
	i := 0
	for {
		j := i
		for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j < len(line) && line[j] == '>' {
			depth++
			i = j + 1
			continue
		}
		return depth, j
	}
}

// QuoteDepth returns the number of leading quote markers on line.
func QuoteDepth(line string) int {
	depth, _ := scanMarkers(line)
	return depth
}

// StripMarkers removes up to depth leading quote markers from line, plus a
// single space following the last removed marker.
func StripMarkers(line string, depth int) string {
	i := 0
	for n := 0; n < depth; n++ {
		j := i
		for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j >= len(line) || line[j] != '>' {
			break
		}
		i = j + 1
	}
	if i > 0 && i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}

// MarkerPrefix renders the canonical prefix for a depth: "> > " for 2.
func MarkerPrefix(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("> ", depth)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// continues reports whether a non-blank line belongs to a block of the given
// depth. Bare (depth 0) blocks continue over any non-blank line.
func continues(line string, depth int) bool {
	if isBlank(line) {
		return false
	}
	return QuoteDepth(line) >= depth
}

// Extract scans text and returns every callout block in order of appearance.
// Blocks carry no parent/children links; see BuildForest.
//
// A block continues over lines whose quote depth is at least its own, until a
// new tag at the same or a shallower depth opens a sibling. A blank
// line is absorbed only when the next non-blank line continues the block, so
// trailing blank lines never belong to a span. Unterminated blocks run to the
// end of text.
func Extract(text string) []Block {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return []Block{}
	}

	// nextNonBlank[i] is the first non-blank line after i, or -1.
	nextNonBlank := make([]int, len(lines))
	next := -1
	for i := len(lines) - 1; i >= 0; i-- {
		nextNonBlank[i] = next
		if !isBlank(lines[i].Text) {
			next = i
		}
	}

	type open struct {
		block int
		depth int
	}

	blocks := make([]Block, 0)
	lastLine := make([]int, 0)
	var stack []open
	lastNonBlank := -1

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lastLine[top.block] = lastNonBlank
	}

	for i, ln := range lines {
		blank := isBlank(ln.Text)

		// Depths on the stack increase upwards, so once the top block
		// continues every block beneath it does too.
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			keep := false
			if blank {
				n := nextNonBlank[i]
				keep = top.depth > 0 && n >= 0 && continues(lines[n].Text, top.depth)
			} else {
				keep = continues(ln.Text, top.depth)
			}
			if keep {
				break
			}
			closeTop()
		}

		if blank {
			// Bare blocks end at the first blank line even when a quoted
			// block opened inside them carries on.
			kept := stack[:0]
			for _, o := range stack {
				if o.depth == 0 {
					lastLine[o.block] = lastNonBlank
					continue
				}
				kept = append(kept, o)
			}
			stack = kept
			continue
		}
		op, ok := ParseOpening(ln.Text)
		if ok {
			// A tag at the same or a shallower depth opens a sibling.
			for len(stack) > 0 && stack[len(stack)-1].depth >= op.Depth {
				closeTop()
			}
		}
		lastNonBlank = i
		if !ok {
			continue
		}
		blocks = append(blocks, Block{
			Type:   op.Type,
			Title:  op.Title,
			Prefix: op.Prefix,
			Depth:  op.Depth,
			Line:   i,
			Parent: -1,
		})
		lastLine = append(lastLine, i)
		stack = append(stack, open{block: len(blocks) - 1, depth: op.Depth})
	}
	for len(stack) > 0 {
		closeTop()
	}

	for i := range blocks {
		b := &blocks[i]
		first, last := b.Line, lastLine[i]
		b.Span = Span{Start: lines[first].Start, End: lines[last].End}
		b.Content = blockContent(lines[first+1:last+1], b.Depth)
	}

	return blocks
}

func blockContent(lines []Line, depth int) string {
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, len(lines))
	for i, ln := range lines {
		if isBlank(ln.Text) {
			continue
		}
		parts[i] = StripMarkers(ln.Text, depth)
	}
	return strings.Join(parts, "\n")
}
