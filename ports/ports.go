// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher verifies secrets against stored hashes.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Schema Ports
// -----------------------------------------------------------------------------

// Store errors shared by every StructureStore and RuleStore implementation.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// StructureStore persists structure definitions in registration order.
type StructureStore interface {
	// Get retrieves a structure by ID.
	Get(ctx context.Context, id string) (structure.Structure, error)

	// List returns all structures in registration order.
	List(ctx context.Context) ([]structure.Structure, error)

	// Create stores a new structure after the existing ones.
	Create(ctx context.Context, s structure.Structure) error

	// Update modifies an existing structure, keeping its position.
	Update(ctx context.Context, s structure.Structure) error

	// Delete removes a structure.
	Delete(ctx context.Context, id string) error
}

// RuleStore persists rule definitions.
type RuleStore interface {
	// Get retrieves a rule by ID.
	Get(ctx context.Context, id string) (rule.Rule, error)

	// List returns all rules, enabled or not, in registration order.
	List(ctx context.Context) ([]rule.Rule, error)

	// Create stores a new rule.
	Create(ctx context.Context, r rule.Rule) error

	// Update modifies an existing rule.
	Update(ctx context.Context, r rule.Rule) error

	// Delete removes a rule.
	Delete(ctx context.Context, id string) error
}

// SchemaSnapshot is an immutable view of the registry taken for one
// validation pass.
type SchemaSnapshot struct {
	Structures []structure.Structure
	Rules      []*rule.Compiled
	LoadedAt   time.Time
}

// Structure looks up a structure by ID.
func (s *SchemaSnapshot) Structure(id string) (structure.Structure, bool) {
	if s == nil {
		return structure.Structure{}, false
	}
	for _, st := range s.Structures {
		if st.ID == id {
			return st, true
		}
	}
	return structure.Structure{}, false
}

// SchemaRegistry serves the current snapshot. Readers never see a partially
// loaded registry.
type SchemaRegistry interface {
	Snapshot() *SchemaSnapshot
}

// -----------------------------------------------------------------------------
// Metrics Port
// -----------------------------------------------------------------------------

// ValidationMetrics records engine activity.
type ValidationMetrics interface {
	ObserveValidation(structureID string, d time.Duration)
	ObserveResult(severity, category string)
	ObserveDetection(matched bool)
	ObserveQuickFix(kind string, applied bool)
	ObserveRuleCompileError()
	ObserveRegistryReload(err error)
}
