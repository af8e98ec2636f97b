// Package schemafile loads structure and rule definitions from a YAML file.
//
// Example:
//
//	structures:
//	  - id: legacy
//	    nesting_mode: nested
//	    root_type: journal-entry
//	    child_types: [dream-diary, dream-metrics]
//	    metrics_type: dream-metrics
//	    required_types: [journal-entry, dream-diary]
//	rules:
//	  - id: no-todo
//	    kind: content
//	    severity: info
//	    pattern: TODO
//	    pattern_type: literal
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artpar/calloutlint/adapters/idgen"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"gopkg.in/yaml.v3"
)

// File is the on-disk schema document.
type File struct {
	Structures []StructureSpec `yaml:"structures"`
	Rules      []RuleSpec      `yaml:"rules"`
}

// StructureSpec is the YAML form of structure.Structure. An entry without an
// id takes one derived from its name.
type StructureSpec struct {
	ID            string   `yaml:"id,omitempty"`
	Name          string   `yaml:"name,omitempty"`
	Description   string   `yaml:"description,omitempty"`
	NestingMode   string   `yaml:"nesting_mode,omitempty"` // Default: nested
	RootType      string   `yaml:"root_type"`
	ChildTypes    []string `yaml:"child_types,omitempty"`
	MetricsType   string   `yaml:"metrics_type,omitempty"`
	RequiredTypes []string `yaml:"required_types,omitempty"`
	OptionalTypes []string `yaml:"optional_types,omitempty"`
}

// RuleSpec is the YAML form of rule.Rule. Like structures, a rule without an
// id takes one derived from its name.
type RuleSpec struct {
	ID          string `yaml:"id,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Kind        string `yaml:"kind,omitempty"`     // Default: custom
	Severity    string `yaml:"severity,omitempty"` // Default: warning
	Pattern     string `yaml:"pattern,omitempty"`
	PatternType string `yaml:"pattern_type,omitempty"`
	Negative    *bool  `yaml:"negative,omitempty"` // Default: true
	Message     string `yaml:"message,omitempty"`
	Priority    int    `yaml:"priority,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"` // Default: true
}

// Load reads and parses a schema file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a schema document. Unknown keys are rejected so typos in
// field names surface instead of silently dropping a setting.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	return f, nil
}

// Domain converts the document to domain values, applying defaults.
// Entries are not validated here; the registry skips invalid ones.
func (f *File) Domain() ([]structure.Structure, []rule.Rule) {
	structures := make([]structure.Structure, 0, len(f.Structures))
	for _, s := range f.Structures {
		structures = append(structures, s.toDomain())
	}
	rules := make([]rule.Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		rules = append(rules, r.toDomain())
	}
	return structures, rules
}

func (s StructureSpec) toDomain() structure.Structure {
	mode := structure.NestingMode(s.NestingMode)
	if mode == "" {
		mode = structure.NestingNested
	}
	return structure.Structure{
		ID:            entryID(s.ID, s.Name),
		Name:          s.Name,
		Description:   s.Description,
		NestingMode:   mode,
		RootType:      s.RootType,
		ChildTypes:    s.ChildTypes,
		MetricsType:   s.MetricsType,
		RequiredTypes: s.RequiredTypes,
		OptionalTypes: s.OptionalTypes,
	}
}

func (r RuleSpec) toDomain() rule.Rule {
	kind := rule.Kind(r.Kind)
	if kind == "" {
		kind = rule.KindCustom
	}
	sev := rule.Severity(r.Severity)
	if sev == "" {
		sev = rule.SeverityWarning
	}
	return rule.Rule{
		ID:          entryID(r.ID, r.Name),
		Name:        r.Name,
		Description: r.Description,
		Kind:        kind,
		Severity:    sev,
		Pattern:     r.Pattern,
		PatternType: rule.PatternType(r.PatternType),
		Negative:    boolOr(r.Negative, true),
		Message:     r.Message,
		Priority:    r.Priority,
		Enabled:     boolOr(r.Enabled, true),
	}
}

// FromDomain builds a document from domain values, for export.
func FromDomain(structures []structure.Structure, rules []rule.Rule) *File {
	f := &File{}
	for _, s := range structures {
		f.Structures = append(f.Structures, StructureSpec{
			ID:            s.ID,
			Name:          s.Name,
			Description:   s.Description,
			NestingMode:   string(s.NestingMode),
			RootType:      s.RootType,
			ChildTypes:    s.ChildTypes,
			MetricsType:   s.MetricsType,
			RequiredTypes: s.RequiredTypes,
			OptionalTypes: s.OptionalTypes,
		})
	}
	for _, r := range rules {
		negative, enabled := r.Negative, r.Enabled
		f.Rules = append(f.Rules, RuleSpec{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Kind:        string(r.Kind),
			Severity:    string(r.Severity),
			Pattern:     r.Pattern,
			PatternType: string(r.PatternType),
			Negative:    &negative,
			Message:     r.Message,
			Priority:    r.Priority,
			Enabled:     &enabled,
		})
	}
	return f
}

// Encode writes the document as YAML.
func (f *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode schema file: %w", err)
	}
	return enc.Close()
}

func entryID(id, name string) string {
	if id != "" || name == "" {
		return id
	}
	return idgen.Slug(name)
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
