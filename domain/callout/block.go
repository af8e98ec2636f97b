// Package callout provides callout block value types and pure parsing functions.
// Callouts are blockquote annotations opened by a bracketed type tag, e.g.
//
//	> [!journal-entry] Monday
//	> > [!dream-diary] Flying
//	> > Over the sea.
//
// Extract finds blocks in a single pass; BuildForest assembles them into trees.
package callout

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether other lies inside s. Ends may coincide: a nested
// block on the last line of its parent finishes at the same offset.
func (s Span) Contains(other Span) bool {
	return s.Start < other.Start && other.End <= s.End
}

// Block is a single callout found in the source text (immutable value type).
// Parent and Children are indexes into the owning Forest's Blocks slice.
type Block struct {
	Type    string // Lower-cased tag type: "dream-diary" for "[!Dream-Diary]"
	Title   string // Text after the tag on the opening line
	Content string // Continuation lines with this block's quote markers removed
	Prefix  string // Literal marker prefix preceding the tag, e.g. "> > "
	Depth   int    // Number of quote markers in Prefix
	Line    int    // 0-based line of the opening tag
	Span    Span   // Opening line start through end of the last continuation line

	Parent   int   // -1 for roots
	Children []int // Ascending by Span.Start
}

// IsRoot reports whether the block has no parent.
func (b Block) IsRoot() bool {
	return b.Parent < 0
}

// Source returns the block's exact source text.
func (b Block) Source(text string) string {
	if b.Span.Start < 0 || b.Span.End > len(text) || b.Span.Start > b.Span.End {
		return ""
	}
	return text[b.Span.Start:b.Span.End]
}
