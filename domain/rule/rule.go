// Package rule provides pattern rule value types and pure evaluation functions.
// Rules are compiled once when the registry loads and evaluated against raw
// document text on every validation pass.
package rule

import (
	"errors"
	"fmt"
)

// Kind classifies a rule.
type Kind string

const (
	KindStructural Kind = "structural" // Handled through structures, skipped in the flat rule list
	KindFormat     Kind = "format"
	KindContent    Kind = "content"
	KindCustom     Kind = "custom"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStructural, KindFormat, KindContent, KindCustom:
		return true
	}
	return false
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities for sorting: error=0, warning=1, info=2.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() < 3
}

// PatternType selects how Pattern is interpreted.
type PatternType string

const (
	PatternRegex   PatternType = "regex"   // RE2 regular expression (default)
	PatternLiteral PatternType = "literal" // Plain substring
	PatternExpr    PatternType = "expr"    // Boolean expr-lang expression over the document
)

// Rule is a pattern-based check independent of any structure (immutable value type).
type Rule struct {
	ID          string
	Name        string
	Description string

	Kind        Kind
	Severity    Severity
	Pattern     string
	PatternType PatternType
	Negative    bool // Each match is a violation; otherwise the absence of any match is
	Message     string
	Priority    int // Lower sorts first among equal severities
	Enabled     bool
}

// Validation errors.
var (
	ErrMissingID      = errors.New("rule id is required")
	ErrMissingPattern = errors.New("rule pattern is required")
	ErrInvalidKind    = errors.New("invalid rule kind")
	ErrInvalidSev     = errors.New("invalid rule severity")
	ErrInvalidType    = errors.New("invalid pattern type")
)

// Validate checks the rule's fields, not its pattern syntax (see Compile).
func (r Rule) Validate() error {
	if r.ID == "" {
		return ErrMissingID
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%s: %w %q", r.ID, ErrInvalidKind, r.Kind)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%s: %w %q", r.ID, ErrInvalidSev, r.Severity)
	}
	switch r.PatternType {
	case "", PatternRegex, PatternLiteral, PatternExpr:
	default:
		return fmt.Errorf("%s: %w %q", r.ID, ErrInvalidType, r.PatternType)
	}
	if r.Pattern == "" && r.Kind != KindStructural {
		return fmt.Errorf("%s: %w", r.ID, ErrMissingPattern)
	}
	return nil
}

// EffectivePatternType returns PatternType, defaulting to regex.
func (r Rule) EffectivePatternType() PatternType {
	if r.PatternType == "" {
		return PatternRegex
	}
	return r.PatternType
}

// DisplayMessage returns Message, falling back to Name and then ID.
func (r Rule) DisplayMessage() string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Name != "":
		return r.Name
	default:
		return r.ID
	}
}
