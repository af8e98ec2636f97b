// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/ports"
	"github.com/rs/zerolog"
)

// ErrReadOnly is returned by write operations when the schema source cannot
// be written through the service.
var ErrReadOnly = errors.New("schema registry is read-only")

// ErrInvalidDefinition wraps validation and compile errors from Put calls.
var ErrInvalidDefinition = errors.New("invalid definition")

// RegistryService loads structures and rules from storage, compiles rules
// once and serves immutable snapshots for validation passes.
type RegistryService struct {
	structures ports.StructureStore
	rules      ports.RuleStore
	clock      ports.Clock
	metrics    ports.ValidationMetrics
	logger     zerolog.Logger
	writable   bool

	// Current snapshot, swapped on every successful reload
	snapshot atomic.Pointer[ports.SchemaSnapshot]
	report   atomic.Pointer[LoadReport]

	// Serializes reloads and writes
	mu sync.Mutex

	refreshInterval time.Duration
	stopRefresh     chan struct{}
	stopOnce        sync.Once
}

// RegistryServiceConfig contains configuration for RegistryService.
type RegistryServiceConfig struct {
	Writable        bool          // Allow Put/Delete through the service
	RefreshInterval time.Duration // Periodic reload; 0 disables
}

// LoadReport summarizes the last reload.
type LoadReport struct {
	Structures int
	Rules      int
	Disabled   int
	Skipped    []SkippedEntry
	LoadedAt   time.Time
}

// SkippedEntry is a definition that failed to load.
type SkippedEntry struct {
	Kind  string // "structure" or "rule"
	ID    string
	Error string
}

// NewRegistryService creates a new registry service. Call Reload or Start
// before serving snapshots.
func NewRegistryService(
	structures ports.StructureStore,
	rules ports.RuleStore,
	clock ports.Clock,
	metrics ports.ValidationMetrics,
	logger zerolog.Logger,
	cfg RegistryServiceConfig,
) *RegistryService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RegistryService{
		structures:      structures,
		rules:           rules,
		clock:           clock,
		metrics:         metrics,
		logger:          logger.With().Str("service", "registry").Logger(),
		writable:        cfg.Writable,
		refreshInterval: cfg.RefreshInterval,
		stopRefresh:     make(chan struct{}),
	}
}

// Start performs the initial load and, if configured, begins periodic reloads.
func (s *RegistryService) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if s.refreshInterval > 0 {
		go s.refreshLoop()
	}
	return nil
}

// Stop stops the background refresh goroutine.
func (s *RegistryService) Stop() {
	s.stopOnce.Do(func() { close(s.stopRefresh) })
}

func (s *RegistryService) refreshLoop() {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopRefresh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.Reload(ctx); err != nil {
				s.logger.Error().Err(err).Msg("failed to refresh registry")
			}
			cancel()
		}
	}
}

// Reload rebuilds the snapshot from storage. Invalid structures and rules
// that fail to compile are skipped; the rest load. A storage error keeps the
// previous snapshot.
func (s *RegistryService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *RegistryService) reloadLocked(ctx context.Context) error {
	structures, err := s.structures.List(ctx)
	if err != nil {
		s.metrics.ObserveRegistryReload(err)
		return fmt.Errorf("list structures: %w", err)
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		s.metrics.ObserveRegistryReload(err)
		return fmt.Errorf("list rules: %w", err)
	}

	report := &LoadReport{LoadedAt: s.clock.Now()}
	snap := &ports.SchemaSnapshot{LoadedAt: report.LoadedAt}

	seen := make(map[string]bool, len(structures))
	for _, st := range structures {
		st = st.Normalize()
		err := st.Validate()
		if err == nil && seen[st.ID] {
			err = fmt.Errorf("%s: %w", st.ID, ports.ErrDuplicate)
		}
		if err != nil {
			s.skip(report, "structure", st.ID, err)
			continue
		}
		seen[st.ID] = true
		snap.Structures = append(snap.Structures, st)
	}

	for _, r := range rules {
		if !r.Enabled {
			report.Disabled++
			continue
		}
		c, err := rule.Compile(r)
		if err != nil {
			s.metrics.ObserveRuleCompileError()
			s.skip(report, "rule", r.ID, err)
			continue
		}
		snap.Rules = append(snap.Rules, c)
	}

	report.Structures = len(snap.Structures)
	report.Rules = len(snap.Rules)

	s.snapshot.Store(snap)
	s.report.Store(report)
	s.metrics.ObserveRegistryReload(nil)

	s.logger.Debug().
		Int("structures", report.Structures).
		Int("rules", report.Rules).
		Int("skipped", len(report.Skipped)).
		Msg("registry reloaded")

	return nil
}

func (s *RegistryService) skip(report *LoadReport, kind, id string, err error) {
	report.Skipped = append(report.Skipped, SkippedEntry{Kind: kind, ID: id, Error: err.Error()})
	s.logger.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("skipping invalid definition")
}

// Snapshot returns the current snapshot, never nil.
func (s *RegistryService) Snapshot() *ports.SchemaSnapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	return &ports.SchemaSnapshot{}
}

// Report returns the last load report, or nil before the first load.
func (s *RegistryService) Report() *LoadReport {
	return s.report.Load()
}

// Writable reports whether Put/Delete are allowed.
func (s *RegistryService) Writable() bool {
	return s.writable
}

// ListStructures returns every stored structure, including invalid ones.
func (s *RegistryService) ListStructures(ctx context.Context) ([]structure.Structure, error) {
	return s.structures.List(ctx)
}

// GetStructure returns a stored structure.
func (s *RegistryService) GetStructure(ctx context.Context, id string) (structure.Structure, error) {
	return s.structures.Get(ctx, id)
}

// ListRules returns every stored rule, including disabled ones.
func (s *RegistryService) ListRules(ctx context.Context) ([]rule.Rule, error) {
	return s.rules.List(ctx)
}

// GetRule returns a stored rule.
func (s *RegistryService) GetRule(ctx context.Context, id string) (rule.Rule, error) {
	return s.rules.Get(ctx, id)
}

// PutStructure validates and stores st, creating or replacing it, then
// reloads.
func (s *RegistryService) PutStructure(ctx context.Context, st structure.Structure) error {
	if !s.writable {
		return ErrReadOnly
	}
	st = st.Normalize()
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.structures.Update(ctx, st)
	if errors.Is(err, ports.ErrNotFound) {
		err = s.structures.Create(ctx, st)
	}
	if err != nil {
		return fmt.Errorf("store structure %s: %w", st.ID, err)
	}
	return s.reloadLocked(ctx)
}

// DeleteStructure removes a structure and reloads.
func (s *RegistryService) DeleteStructure(ctx context.Context, id string) error {
	if !s.writable {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.structures.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete structure %s: %w", id, err)
	}
	return s.reloadLocked(ctx)
}

// PutRule stores r after checking that its pattern compiles, then reloads.
func (s *RegistryService) PutRule(ctx context.Context, r rule.Rule) error {
	if !s.writable {
		return ErrReadOnly
	}
	if _, err := rule.Compile(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rules.Update(ctx, r)
	if errors.Is(err, ports.ErrNotFound) {
		err = s.rules.Create(ctx, r)
	}
	if err != nil {
		return fmt.Errorf("store rule %s: %w", r.ID, err)
	}
	return s.reloadLocked(ctx)
}

// DeleteRule removes a rule and reloads.
func (s *RegistryService) DeleteRule(ctx context.Context, id string) error {
	if !s.writable {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rules.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return s.reloadLocked(ctx)
}

// Ensure interface compliance.
var _ ports.SchemaRegistry = (*RegistryService)(nil)
