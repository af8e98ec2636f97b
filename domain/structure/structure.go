// Package structure provides schema value types for callout documents and the
// pure detector that picks a schema for unlabelled text.
package structure

import (
	"errors"
	"fmt"
	"strings"
)

// NestingMode says whether child callouts must sit inside the root callout.
type NestingMode string

const (
	NestingFlat   NestingMode = "flat"   // Children may appear anywhere in the document
	NestingNested NestingMode = "nested" // Children must be textual descendants of the root
)

// Valid reports whether m is a known nesting mode.
func (m NestingMode) Valid() bool {
	return m == NestingFlat || m == NestingNested
}

// Structure describes which callout types make up a document (immutable value type).
type Structure struct {
	ID          string
	Name        string
	Description string

	NestingMode NestingMode
	RootType    string
	ChildTypes  []string
	MetricsType string // Optional; empty disables the metrics check

	RequiredTypes []string // Subset of ChildTypes plus RootType
	OptionalTypes []string
}

// Validation errors.
var (
	ErrMissingID       = errors.New("structure id is required")
	ErrMissingRootType = errors.New("root type is required")
	ErrRootIsChild     = errors.New("root type must not be a child type")
	ErrUnknownRequired = errors.New("required type is neither root nor child")
	ErrNestingMode     = errors.New("invalid nesting mode")
)

// Validate checks the structure's invariants.
func (s Structure) Validate() error {
	if s.ID == "" {
		return ErrMissingID
	}
	if s.RootType == "" {
		return fmt.Errorf("%s: %w", s.ID, ErrMissingRootType)
	}
	if !s.NestingMode.Valid() {
		return fmt.Errorf("%s: %w %q", s.ID, ErrNestingMode, s.NestingMode)
	}
	if s.IsChild(s.RootType) {
		return fmt.Errorf("%s: %w: %s", s.ID, ErrRootIsChild, s.RootType)
	}
	for _, t := range s.RequiredTypes {
		if t != s.RootType && !s.IsChild(t) {
			return fmt.Errorf("%s: %w: %s", s.ID, ErrUnknownRequired, t)
		}
	}
	return nil
}

// Normalize returns a copy of s with every callout type lowercased and
// trimmed, matching the form block types take at extraction.
func (s Structure) Normalize() Structure {
	s.RootType = normalizeType(s.RootType)
	s.MetricsType = normalizeType(s.MetricsType)
	s.ChildTypes = normalizeTypes(s.ChildTypes)
	s.RequiredTypes = normalizeTypes(s.RequiredTypes)
	s.OptionalTypes = normalizeTypes(s.OptionalTypes)
	return s
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func normalizeTypes(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = normalizeType(t)
	}
	return out
}

// IsChild reports whether typ is one of the structure's child types.
func (s Structure) IsChild(typ string) bool {
	return contains(s.ChildTypes, typ)
}

// IsRequired reports whether typ is listed in RequiredTypes.
func (s Structure) IsRequired(typ string) bool {
	return contains(s.RequiredTypes, typ)
}

// RequiredChildren returns RequiredTypes that are also child types, in the
// order they are listed.
func (s Structure) RequiredChildren() []string {
	var out []string
	for _, t := range s.RequiredTypes {
		if s.IsChild(t) {
			out = append(out, t)
		}
	}
	return out
}

// DisplayName returns Name, or ID when Name is empty.
func (s Structure) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
