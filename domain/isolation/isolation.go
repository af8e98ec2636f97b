// Package isolation masks content that must not take part in callout
// extraction: images, links, inline formatting, headings, code, frontmatter,
// comments and user patterns. Masked bytes become spaces, so every offset into
// the isolated text still addresses the same byte of the original.
package isolation

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Options selects what to isolate. The zero value isolates nothing.
type Options struct {
	Images         bool
	Links          bool
	Formatting     bool
	Headings       bool
	Code           bool
	Frontmatter    bool
	Comments       bool
	CustomPatterns []string
}

var (
	imagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`!\[\[[^\]\n]*\]\]`),
		regexp.MustCompile(`!\[[^\]\n]*\]\([^)\n]*\)`),
	}
	linkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\[\[[^\]\n]*\]\]`),
		regexp.MustCompile(`\[[^\]\n]*\]\([^)\n]*\)`),
		regexp.MustCompile(`https?://[^\s)>\]]+`),
	}
	formattingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*\*[^*\n]+\*\*`),
		regexp.MustCompile(`__[^_\n]+__`),
		regexp.MustCompile(`~~[^~\n]+~~`),
		regexp.MustCompile(`==[^=\n]+==`),
		regexp.MustCompile(`\*[^*\s][^*\n]*\*`),
	}
	htmlTagPattern  = regexp.MustCompile(`<[^<>\n]+>`)
	headingPattern  = regexp.MustCompile(`(?m)^[ \t>]*#{1,6}[ \t][^\n]*`)
	inlineCode      = regexp.MustCompile("`[^`\n]+`")
	commentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)%%.*?%%`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
)

var (
	tagPolicyOnce sync.Once
	tagPolicy     *bluemonday.Policy
)

func tagSanitizer() *bluemonday.Policy {
	tagPolicyOnce.Do(func() {
		tagPolicy = bluemonday.StrictPolicy()
	})
	return tagPolicy
}

// isTag reports whether s is markup that a strict policy strips entirely.
func isTag(s string) bool {
	return strings.TrimSpace(html.UnescapeString(tagSanitizer().Sanitize(s))) == ""
}

// Isolator applies a fixed set of options. Safe for concurrent use.
type Isolator struct {
	opts   Options
	custom []*regexp.Regexp
}

// New compiles the custom patterns in opts.
func New(opts Options) (*Isolator, error) {
	iso := &Isolator{opts: opts}
	for _, p := range opts.CustomPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile isolation pattern %q: %w", p, err)
		}
		iso.custom = append(iso.custom, re)
	}
	return iso, nil
}

// Enabled reports whether any option is set.
func (iso *Isolator) Enabled() bool {
	o := iso.opts
	return o.Images || o.Links || o.Formatting || o.Headings || o.Code ||
		o.Frontmatter || o.Comments || len(iso.custom) > 0
}

// Isolate returns text with isolated regions masked. The result has the same
// length as text, keeps every line break and keeps the quote markers at the
// start of masked lines so enclosing callouts still continue.
func (iso *Isolator) Isolate(text string) string {
	if iso == nil || !iso.Enabled() || text == "" {
		return text
	}

	buf := []byte(text)
	m := masker{text: text, buf: buf}

	if iso.opts.Frontmatter {
		if end := frontmatterEnd(text); end > 0 {
			m.mask(0, end)
		}
	}
	if iso.opts.Code {
		for _, r := range fencedCode(text) {
			m.mask(r[0], r[1])
		}
		m.maskAll(inlineCode)
	}
	if iso.opts.Comments {
		m.maskAll(commentPatterns...)
	}
	if iso.opts.Images {
		m.maskAll(imagePatterns...)
	}
	if iso.opts.Links {
		m.maskAll(linkPatterns...)
	}
	if iso.opts.Formatting {
		m.maskAll(formattingPatterns...)
		for _, loc := range htmlTagPattern.FindAllStringIndex(text, -1) {
			if isTag(text[loc[0]:loc[1]]) {
				m.mask(loc[0], loc[1])
			}
		}
	}
	if iso.opts.Headings {
		m.maskAll(headingPattern)
	}
	m.maskAll(iso.custom...)

	return string(buf)
}

type masker struct {
	text string
	buf  []byte
}

func (m masker) maskAll(patterns ...*regexp.Regexp) {
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(m.text, -1) {
			m.mask(loc[0], loc[1])
		}
	}
}

// mask blanks [start, end), sparing line breaks and the leading marker run
// of every line.
func (m masker) mask(start, end int) {
	lineStart := strings.LastIndexByte(m.text[:start], '\n') + 1
	keepUntil := lineStart + markerRun(m.text[lineStart:])
	for i := start; i < end; i++ {
		switch c := m.text[i]; {
		case c == '\n':
			keepUntil = i + 1 + markerRun(m.text[i+1:])
		case c == '\r':
		case i < keepUntil:
		default:
			m.buf[i] = ' '
		}
	}
}

// markerRun returns the length of the leading quote-marker prefix of the line
// at the start of s.
func markerRun(s string) int {
	n := 0
	for n < len(s) {
		switch s[n] {
		case ' ', '\t', '>':
			n++
		default:
			return n
		}
	}
	return n
}

// frontmatterEnd returns the offset just past the closing "---" line of a
// leading frontmatter block, or 0.
func frontmatterEnd(text string) int {
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return 0
	}
	pos := strings.IndexByte(text, '\n') + 1
	for pos < len(text) {
		end := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			end = pos + nl
		}
		if strings.TrimRight(text[pos:end], "\r \t") == "---" {
			return end
		}
		pos = end + 1
	}
	return 0
}

// fencedCode returns the ranges of ``` or ~~~ fenced blocks, including fence
// lines. Fences may sit inside quotes. An unclosed fence runs to the end.
func fencedCode(text string) [][2]int {
	var out [][2]int
	open := -1
	var fence string
	for pos := 0; pos < len(text); {
		end := len(text)
		next := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			end = pos + nl
			next = end + 1
		}
		line := text[pos:end]
		body := strings.TrimSpace(line[markerRun(line):])
		switch {
		case open < 0 && (strings.HasPrefix(body, "```") || strings.HasPrefix(body, "~~~")):
			open = pos
			fence = body[:3]
		case open >= 0 && strings.HasPrefix(body, fence):
			out = append(out, [2]int{open, end})
			open = -1
		}
		pos = next
	}
	if open >= 0 {
		out = append(out, [2]int{open, len(text)})
	}
	return out
}
