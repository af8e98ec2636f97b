package app

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/artpar/calloutlint/domain/callout"
	"github.com/artpar/calloutlint/domain/diagnostic"
	"github.com/artpar/calloutlint/domain/isolation"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/ports"
	"github.com/rs/zerolog"
)

// ErrResultNotFound is returned by FixByID when no result has the given id.
var ErrResultNotFound = errors.New("validation result not found")

// ValidationService runs validation passes: isolation, extraction, structure
// resolution, structural checks and generic rules.
type ValidationService struct {
	registry ports.SchemaRegistry
	isolator atomic.Pointer[isolation.Isolator]
	clock    ports.Clock
	metrics  ports.ValidationMetrics
	logger   zerolog.Logger
	checks   []BlockCheck
}

// ValidationServiceConfig contains configuration for ValidationService.
type ValidationServiceConfig struct {
	Isolator    *isolation.Isolator // nil disables isolation
	BlockChecks []BlockCheck
}

// NewValidationService creates a new validation service.
func NewValidationService(
	registry ports.SchemaRegistry,
	clock ports.Clock,
	metrics ports.ValidationMetrics,
	logger zerolog.Logger,
	cfg ValidationServiceConfig,
) *ValidationService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &ValidationService{
		registry: registry,
		clock:    clock,
		metrics:  metrics,
		logger:   logger.With().Str("service", "validation").Logger(),
		checks:   cfg.BlockChecks,
	}
	s.isolator.Store(cfg.Isolator)
	return s
}

// SetIsolator replaces the isolator used by subsequent passes. nil disables
// isolation.
func (s *ValidationService) SetIsolator(iso *isolation.Isolator) {
	s.isolator.Store(iso)
}

// Pass is the outcome of one validation pass.
type Pass struct {
	Structure structure.Structure // Zero when no structure applied
	Matched   bool                // A structure was resolved or detected
	Results   []diagnostic.Result
}

// Validate checks text against the structure named by structureID, or the
// detected one when structureID is empty or unknown, plus every applicable
// rule. Results are sorted by severity and priority.
func (s *ValidationService) Validate(text, structureID string) []diagnostic.Result {
	return s.Run(text, structureID).Results
}

// Run is Validate that also reports which structure the pass used.
func (s *ValidationService) Run(text, structureID string) Pass {
	start := s.clock.Now()
	snap := s.registry.Snapshot()

	f := s.forest(text)
	st, ok := s.resolve(snap, f, structureID)

	idx := diagnostic.NewLineIndex(text)
	results := make([]diagnostic.Result, 0)
	if ok {
		results = append(results, s.structural(text, f, st, idx)...)
	}
	results = append(results, s.evaluateRules(text, snap, idx)...)
	diagnostic.Sort(results)

	for _, r := range results {
		s.metrics.ObserveResult(string(r.Severity), string(r.Category))
	}
	s.metrics.ObserveValidation(st.ID, s.clock.Now().Sub(start))

	s.logger.Debug().
		Str("structure", st.ID).
		Int("blocks", f.Len()).
		Int("results", len(results)).
		Msg("validation pass complete")

	return Pass{Structure: st, Matched: ok, Results: results}
}

// DetectStructure returns the structure detected for text, if any.
func (s *ValidationService) DetectStructure(text string) (structure.Structure, bool) {
	snap := s.registry.Snapshot()
	return s.detect(snap, s.forest(text))
}

// Blocks returns the callout forest of text after isolation.
func (s *ValidationService) Blocks(text string) callout.Forest {
	return s.forest(text)
}

// ApplyQuickFix applies the fixIndex-th fix of result. Text is returned
// unchanged when the index is out of range or the fix cannot act.
func (s *ValidationService) ApplyQuickFix(text string, result diagnostic.Result, fixIndex int) string {
	out := diagnostic.ApplyQuickFix(text, result, fixIndex)
	kind := "none"
	if fixIndex >= 0 && fixIndex < len(result.QuickFixes) {
		kind = string(result.QuickFixes[fixIndex].Kind)
	}
	s.metrics.ObserveQuickFix(kind, out != text)
	return out
}

// FixByID re-validates text, finds the result with resultID and applies its
// fixIndex-th fix. Fixes are closures, so callers outside the process refer
// to results by id.
func (s *ValidationService) FixByID(text, structureID, resultID string, fixIndex int) (string, error) {
	r, ok := diagnostic.Find(s.Validate(text, structureID), resultID)
	if !ok {
		return text, ErrResultNotFound
	}
	return s.ApplyQuickFix(text, r, fixIndex), nil
}

func (s *ValidationService) forest(text string) callout.Forest {
	return callout.BuildForest(callout.Extract(s.isolator.Load().Isolate(text)))
}

func (s *ValidationService) resolve(snap *ports.SchemaSnapshot, f callout.Forest, id string) (structure.Structure, bool) {
	if id != "" {
		if st, ok := snap.Structure(id); ok {
			return st, true
		}
		s.logger.Warn().Str("structure", id).Msg("unknown structure id, falling back to detection")
	}
	return s.detect(snap, f)
}

func (s *ValidationService) detect(snap *ports.SchemaSnapshot, f callout.Forest) (structure.Structure, bool) {
	st, ok := structure.Detect(f.Blocks, snap.Structures)
	s.metrics.ObserveDetection(ok)
	return st, ok
}

func (s *ValidationService) evaluateRules(text string, snap *ports.SchemaSnapshot, idx *diagnostic.LineIndex) []diagnostic.Result {
	var out []diagnostic.Result
	for _, c := range snap.Rules {
		if !c.Applies() {
			continue
		}
		matches, err := c.Evaluate(text)
		if err != nil {
			s.logger.Warn().Err(err).Str("rule", c.Rule.ID).Msg("rule evaluation failed")
			continue
		}
		for _, m := range matches {
			r := diagnostic.NewResult(c.Rule.ID, c.Rule.Severity, diagnostic.CategoryRule,
				c.Rule.DisplayMessage(), callout.Span{Start: m.Start, End: m.End}, idx)
			r.Priority = c.Rule.Priority
			out = append(out, r)
		}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) ObserveValidation(string, time.Duration) {}
func (nopMetrics) ObserveResult(string, string)            {}
func (nopMetrics) ObserveDetection(bool)                   {}
func (nopMetrics) ObserveQuickFix(string, bool)            {}
func (nopMetrics) ObserveRuleCompileError()                {}
func (nopMetrics) ObserveRegistryReload(error)             {}
