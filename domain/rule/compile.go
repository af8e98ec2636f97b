package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Match is a half-open byte range of a violation. Document-level violations
// use {0, 0}.
type Match struct {
	Start int
	End   int
}

// Env is the environment exposed to expr patterns.
type Env struct {
	Text      string   `expr:"text"`
	Lines     []string `expr:"lines"`
	LineCount int      `expr:"lineCount"`
	WordCount int      `expr:"wordCount"`
}

// NewEnv builds the expr environment for a document.
func NewEnv(text string) Env {
	lines := strings.Split(text, "\n")
	return Env{
		Text:      text,
		Lines:     lines,
		LineCount: len(lines),
		WordCount: len(strings.Fields(text)),
	}
}

// Compiled is a rule with its pattern resolved once for reuse across passes.
type Compiled struct {
	Rule Rule

	regex   *regexp.Regexp
	literal string
	program *vm.Program
}

// Compile validates r and compiles its pattern.
func Compile(r Rule) (*Compiled, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c := &Compiled{Rule: r}
	if r.Kind == KindStructural {
		return c, nil
	}

	switch r.EffectivePatternType() {
	case PatternRegex:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: compile regex: %w", r.ID, err)
		}
		c.regex = re
	case PatternLiteral:
		c.literal = r.Pattern
	case PatternExpr:
		program, err := expr.Compile(r.Pattern, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%s: compile expr: %w", r.ID, err)
		}
		c.program = program
	}
	return c, nil
}

// Applies reports whether the rule takes part in generic evaluation: enabled
// and not structural.
func (c *Compiled) Applies() bool {
	return c.Rule.Enabled && c.Rule.Kind != KindStructural
}

// Evaluate returns the rule's violations in text. A negative rule yields one
// match per occurrence; a positive rule yields a single {0, 0} match when the
// pattern is absent. Expr patterns are document-level in both polarities.
// The error is only set when an expr pattern fails at runtime, in which case
// no violations are reported.
func (c *Compiled) Evaluate(text string) ([]Match, error) {
	if c.program != nil {
		out, err := expr.Run(c.program, NewEnv(text))
		if err != nil {
			return nil, fmt.Errorf("%s: run expr: %w", c.Rule.ID, err)
		}
		hit, _ := out.(bool)
		if hit == c.Rule.Negative {
			return []Match{{}}, nil
		}
		return nil, nil
	}

	if !c.Rule.Negative {
		if c.found(text) {
			return nil, nil
		}
		return []Match{{}}, nil
	}
	return c.occurrences(text), nil
}

func (c *Compiled) found(text string) bool {
	if c.regex != nil {
		return c.regex.MatchString(text)
	}
	return c.literal != "" && strings.Contains(text, c.literal)
}

func (c *Compiled) occurrences(text string) []Match {
	var out []Match
	if c.regex != nil {
		for _, loc := range c.regex.FindAllStringIndex(text, -1) {
			// Empty matches have no span to anchor to.
			if loc[0] == loc[1] {
				continue
			}
			out = append(out, Match{Start: loc[0], End: loc[1]})
		}
		return out
	}
	if c.literal == "" {
		return nil
	}
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], c.literal)
		if i < 0 {
			break
		}
		start := off + i
		out = append(out, Match{Start: start, End: start + len(c.literal)})
		off = start + len(c.literal)
	}
	return out
}
