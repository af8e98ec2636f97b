package callout_test

import (
	"strings"
	"testing"

	"github.com/artpar/calloutlint/domain/callout"
	"github.com/google/go-cmp/cmp"
)

const journalDoc = "> [!journal-entry] Monday\n" +
	"> Woke at six.\n" +
	"> > [!dream-diary] Flying\n" +
	"> > Over the sea.\n" +
	"> > > [!symbols]\n" +
	"> > > water\n" +
	"> Back to sleep.\n"

func endOf(text, line string) int {
	return strings.Index(text, line) + len(line)
}

func TestExtract_NoCallouts(t *testing.T) {
	tests := []string{
		"",
		"plain prose\nwith two lines\n",
		"> a quote without a tag\n> second line",
		"text [!note] embedded mid-line",
	}

	for _, text := range tests {
		blocks := callout.Extract(text)
		if blocks == nil {
			t.Fatalf("Extract(%q) returned nil, want empty slice", text)
		}
		if len(blocks) != 0 {
			t.Errorf("Extract(%q) = %d blocks, want 0", text, len(blocks))
		}
	}
}

func TestExtract_NestedBlocks(t *testing.T) {
	blocks := callout.Extract(journalDoc)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}

	tests := []struct {
		typ     string
		title   string
		depth   int
		line    int
		start   int
		end     int
		content string
	}{
		{
			typ:   "journal-entry",
			title: "Monday",
			depth: 1,
			line:  0,
			start: 0,
			end:   endOf(journalDoc, "> Back to sleep."),
			content: "Woke at six.\n> [!dream-diary] Flying\n> Over the sea.\n" +
				"> > [!symbols]\n> > water\nBack to sleep.",
		},
		{
			typ:     "dream-diary",
			title:   "Flying",
			depth:   2,
			line:    2,
			start:   strings.Index(journalDoc, "> > [!dream-diary]"),
			end:     endOf(journalDoc, "> > > water"),
			content: "Over the sea.\n> [!symbols]\n> water",
		},
		{
			typ:     "symbols",
			depth:   3,
			line:    4,
			start:   strings.Index(journalDoc, "> > > [!symbols]"),
			end:     endOf(journalDoc, "> > > water"),
			content: "water",
		},
	}

	for i, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b := blocks[i]
			if b.Type != tt.typ {
				t.Errorf("Type = %q, want %q", b.Type, tt.typ)
			}
			if b.Title != tt.title {
				t.Errorf("Title = %q, want %q", b.Title, tt.title)
			}
			if b.Depth != tt.depth {
				t.Errorf("Depth = %d, want %d", b.Depth, tt.depth)
			}
			if b.Line != tt.line {
				t.Errorf("Line = %d, want %d", b.Line, tt.line)
			}
			if b.Span.Start != tt.start || b.Span.End != tt.end {
				t.Errorf("Span = %+v, want {%d %d}", b.Span, tt.start, tt.end)
			}
			if b.Content != tt.content {
				t.Errorf("Content = %q, want %q", b.Content, tt.content)
			}
			if b.Parent != -1 || len(b.Children) != 0 {
				t.Errorf("Extract must not link blocks, got parent=%d children=%v", b.Parent, b.Children)
			}
			if b.Span.Start >= b.Span.End {
				t.Errorf("empty span %+v", b.Span)
			}
		})
	}
}

func TestExtract_BlankLines(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantEnd string
		content string
	}{
		{
			name:    "blank followed by continuation is absorbed",
			text:    "> [!a]\n> one\n\n> two\n\nplain\n",
			wantEnd: "> two",
			content: "one\n\ntwo",
		},
		{
			name:    "blank followed by prose ends the block",
			text:    "> [!a]\n> one\n\nplain\n> later",
			wantEnd: "> one",
			content: "one",
		},
		{
			name:    "trailing blank lines are not part of the span",
			text:    "> [!a]\n> one\n\n\n",
			wantEnd: "> one",
			content: "one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := callout.Extract(tt.text)
			if len(blocks) != 1 {
				t.Fatalf("got %d blocks, want 1", len(blocks))
			}
			if got, want := blocks[0].Span.End, endOf(tt.text, tt.wantEnd); got != want {
				t.Errorf("Span.End = %d, want %d", got, want)
			}
			if blocks[0].Content != tt.content {
				t.Errorf("Content = %q, want %q", blocks[0].Content, tt.content)
			}
		})
	}
}

func TestExtract_TerminationRules(t *testing.T) {
	text := "> [!a]\n> x\ntext\n> [!b] Tail\n> runs to the end"
	blocks := callout.Extract(text)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}

	if got, want := blocks[0].Span.End, endOf(text, "> x"); got != want {
		t.Errorf("a: Span.End = %d, want %d (ends at first non-continuing line)", got, want)
	}
	if blocks[1].Span.End != len(text) {
		t.Errorf("b: Span.End = %d, want %d (unterminated block runs to EOF)", blocks[1].Span.End, len(text))
	}
	if blocks[1].Title != "Tail" {
		t.Errorf("b: Title = %q, want Tail", blocks[1].Title)
	}
}

func TestExtract_BareTag(t *testing.T) {
	text := "[!note] hi\nline two\n\nafter"
	blocks := callout.Extract(text)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	b := blocks[0]
	if b.Depth != 0 || b.Prefix != "" {
		t.Errorf("Depth = %d Prefix = %q, want 0 and empty", b.Depth, b.Prefix)
	}
	if got, want := b.Span.End, endOf(text, "line two"); got != want {
		t.Errorf("Span.End = %d, want %d", got, want)
	}
	if b.Content != "line two" {
		t.Errorf("Content = %q, want %q", b.Content, "line two")
	}
}

func TestExtract_CRLF(t *testing.T) {
	text := "> [!a] T\r\n> body\r\n\r\nafter\r\n"
	blocks := callout.Extract(text)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if got, want := blocks[0].Span.End, strings.Index(text, "> body")+len("> body"); got != want {
		t.Errorf("Span.End = %d, want %d", got, want)
	}
	if blocks[0].Content != "body" {
		t.Errorf("Content = %q, want body", blocks[0].Content)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	docs := []string{
		journalDoc,
		"> [!a]\n> [!b]\n\n> > [!c]\n",
		"[!x]\n> [!y]\n> > [!z] deep\n",
	}

	for _, doc := range docs {
		first := callout.Extract(doc)
		second := callout.Extract(doc)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Extract not idempotent for %q (-first +second):\n%s", doc, diff)
		}
	}
}

func TestParseOpening(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		typ    string
		title  string
		prefix string
		depth  int
	}{
		{"> [!note] Hello", true, "note", "Hello", "> ", 1},
		{"> > [!Dream-Diary]- Folded", true, "dream-diary", "Folded", "> > ", 2},
		{">>[!x]+", true, "x", "", ">>", 2},
		{"[!bare] title", true, "bare", "title", "", 0},
		{"  > [!indented]", true, "indented", "", "  > ", 1},
		{"> [!]", false, "", "", "", 0},
		{"> [!two words]", false, "", "", "", 0},
		{"> text [!note]", false, "", "", "", 0},
		{"> [note]", false, "", "", "", 0},
		{"", false, "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			op, ok := callout.ParseOpening(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if op.Type != tt.typ || op.Title != tt.title || op.Prefix != tt.prefix || op.Depth != tt.depth {
				t.Errorf("got %+v, want type=%q title=%q prefix=%q depth=%d",
					op, tt.typ, tt.title, tt.prefix, tt.depth)
			}
		})
	}
}

func TestStripMarkers(t *testing.T) {
	tests := []struct {
		line  string
		depth int
		want  string
	}{
		{"> text", 1, "text"},
		{"> > text", 1, "> text"},
		{"> > text", 2, "text"},
		{">>text", 2, "text"},
		{">", 1, ""},
		{"> text", 2, "text"},
		{"plain", 1, "plain"},
		{"> text", 0, "> text"},
	}

	for _, tt := range tests {
		if got := callout.StripMarkers(tt.line, tt.depth); got != tt.want {
			t.Errorf("StripMarkers(%q, %d) = %q, want %q", tt.line, tt.depth, got, tt.want)
		}
	}
}

func TestMarkerPrefix(t *testing.T) {
	if got := callout.MarkerPrefix(0); got != "" {
		t.Errorf("MarkerPrefix(0) = %q, want empty", got)
	}
	if got := callout.MarkerPrefix(3); got != "> > > " {
		t.Errorf("MarkerPrefix(3) = %q, want %q", got, "> > > ")
	}
}

func TestExtract_SiblingTagClosesBlock(t *testing.T) {
	text := "> [!journal-entry]\n> > [!a]\n> > one\n> > [!b]\n> > two\n> [!c]\n> three"
	blocks := callout.Extract(text)
	if len(blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(blocks))
	}

	tests := []struct {
		typ     string
		end     int
		content string
	}{
		{"journal-entry", endOf(text, "> > two"), "> [!a]\n> one\n> [!b]\n> two"},
		{"a", endOf(text, "> > one"), "one"},
		{"b", endOf(text, "> > two"), "two"},
		{"c", len(text), "three"},
	}
	for i, tt := range tests {
		b := blocks[i]
		if b.Type != tt.typ {
			t.Fatalf("blocks[%d].Type = %q, want %q", i, b.Type, tt.typ)
		}
		if b.Span.End != tt.end {
			t.Errorf("%s: Span.End = %d, want %d", tt.typ, b.Span.End, tt.end)
		}
		if b.Content != tt.content {
			t.Errorf("%s: Content = %q, want %q", tt.typ, b.Content, tt.content)
		}
	}
}
