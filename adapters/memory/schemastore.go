// Package memory provides in-memory implementations of the schema stores.
// They back the built-in and file registry sources and serve as test doubles.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/ports"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = ports.ErrNotFound

// ErrDuplicate is returned when creating an entity whose ID exists.
var ErrDuplicate = ports.ErrDuplicate

// ordered keeps items in insertion order with lookup by ID.
type ordered[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) string
}

func (o *ordered[T]) find(id string) int {
	for i, it := range o.items {
		if o.id(it) == id {
			return i
		}
	}
	return -1
}

func (o *ordered[T]) get(id string) (T, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var zero T
	i := o.find(id)
	if i < 0 {
		return zero, ErrNotFound
	}
	return o.items[i], nil
}

func (o *ordered[T]) list() []T {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]T, len(o.items))
	copy(out, o.items)
	return out
}

func (o *ordered[T]) create(it T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.find(o.id(it)) >= 0 {
		return ErrDuplicate
	}
	o.items = append(o.items, it)
	return nil
}

func (o *ordered[T]) update(it T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := o.find(o.id(it))
	if i < 0 {
		return ErrNotFound
	}
	o.items[i] = it
	return nil
}

func (o *ordered[T]) delete(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := o.find(id)
	if i < 0 {
		return ErrNotFound
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	return nil
}

func (o *ordered[T]) replace(items []T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.items = append([]T(nil), items...)
}

// StructureStore is an in-memory implementation of ports.StructureStore.
type StructureStore struct {
	o ordered[structure.Structure]
}

// NewStructureStore creates a store holding structures in the given order.
func NewStructureStore(initial ...structure.Structure) *StructureStore {
	s := &StructureStore{o: ordered[structure.Structure]{id: func(st structure.Structure) string { return st.ID }}}
	s.o.replace(initial)
	return s
}

// Get retrieves a structure by ID.
func (s *StructureStore) Get(ctx context.Context, id string) (structure.Structure, error) {
	return s.o.get(id)
}

// List returns all structures in registration order.
func (s *StructureStore) List(ctx context.Context) ([]structure.Structure, error) {
	return s.o.list(), nil
}

// Create appends a structure.
func (s *StructureStore) Create(ctx context.Context, st structure.Structure) error {
	return s.o.create(st)
}

// Update replaces a structure in place.
func (s *StructureStore) Update(ctx context.Context, st structure.Structure) error {
	return s.o.update(st)
}

// Delete removes a structure.
func (s *StructureStore) Delete(ctx context.Context, id string) error {
	return s.o.delete(id)
}

// Replace swaps the whole content, e.g. after a schema file reload.
func (s *StructureStore) Replace(structures []structure.Structure) {
	s.o.replace(structures)
}

// RuleStore is an in-memory implementation of ports.RuleStore.
type RuleStore struct {
	o ordered[rule.Rule]
}

// NewRuleStore creates a store holding rules in the given order.
func NewRuleStore(initial ...rule.Rule) *RuleStore {
	s := &RuleStore{o: ordered[rule.Rule]{id: func(r rule.Rule) string { return r.ID }}}
	s.o.replace(initial)
	return s
}

// Get retrieves a rule by ID.
func (s *RuleStore) Get(ctx context.Context, id string) (rule.Rule, error) {
	return s.o.get(id)
}

// List returns all rules in registration order.
func (s *RuleStore) List(ctx context.Context) ([]rule.Rule, error) {
	return s.o.list(), nil
}

// Create appends a rule.
func (s *RuleStore) Create(ctx context.Context, r rule.Rule) error {
	return s.o.create(r)
}

// Update replaces a rule in place.
func (s *RuleStore) Update(ctx context.Context, r rule.Rule) error {
	return s.o.update(r)
}

// Delete removes a rule.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	return s.o.delete(id)
}

// Replace swaps the whole content.
func (s *RuleStore) Replace(rules []rule.Rule) {
	s.o.replace(rules)
}

// Ensure interface compliance.
var (
	_ ports.StructureStore = (*StructureStore)(nil)
	_ ports.RuleStore      = (*RuleStore)(nil)
)
