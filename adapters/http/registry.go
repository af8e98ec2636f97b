package http

import (
	"errors"
	"net/http"

	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/pkg/jsonapi"
	"github.com/artpar/calloutlint/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StructureAttributes is the attributes object of a structure resource.
type StructureAttributes struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	NestingMode   string   `json:"nesting_mode"`
	RootType      string   `json:"root_type"`
	ChildTypes    []string `json:"child_types"`
	MetricsType   string   `json:"metrics_type"`
	RequiredTypes []string `json:"required_types"`
	OptionalTypes []string `json:"optional_types"`
}

// RuleAttributes is the attributes object of a rule resource.
type RuleAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	Pattern     string `json:"pattern"`
	PatternType string `json:"pattern_type"`
	Negative    *bool  `json:"negative"`
	Message     string `json:"message"`
	Priority    int    `json:"priority"`
	Enabled     *bool  `json:"enabled"`
}

// RegistryHandler serves the schema registry: reads are public, writes need
// the admin token (enforced by the router).
type RegistryHandler struct {
	registry *app.RegistryService
	logger   zerolog.Logger
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(registry *app.RegistryService, logger zerolog.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, logger: logger}
}

// Status reports the last load: counts, skipped definitions and write mode.
func (h *RegistryHandler) Status(w http.ResponseWriter, r *http.Request) {
	doc := jsonapi.NewDocument().Meta("writable", h.registry.Writable())
	if report := h.registry.Report(); report != nil {
		skipped := make([]map[string]string, 0, len(report.Skipped))
		for _, s := range report.Skipped {
			skipped = append(skipped, map[string]string{"kind": s.Kind, "id": s.ID, "error": s.Error})
		}
		doc.Meta("structures", report.Structures).
			Meta("rules", report.Rules).
			Meta("disabled", report.Disabled).
			Meta("skipped", skipped).
			Meta("loaded_at", report.LoadedAt)
	}
	jsonapi.WriteDocument(w, http.StatusOK, doc.Build())
}

// Reload rebuilds the registry snapshot from storage.
func (h *RegistryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reload(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("registry reload")
		jsonapi.WriteInternalError(w, "Registry reload failed")
		return
	}
	h.Status(w, r)
}

// ListStructures returns every stored structure.
func (h *RegistryHandler) ListStructures(w http.ResponseWriter, r *http.Request) {
	structures, err := h.registry.ListStructures(r.Context())
	if err != nil {
		h.writeStoreError(w, "structure", "", err)
		return
	}
	resources := make([]jsonapi.Resource, 0, len(structures))
	for _, st := range structures {
		resources = append(resources, structureResource(st))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// GetStructure returns one structure.
func (h *RegistryHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.registry.GetStructure(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "structure", id, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, structureResource(st))
}

// PutStructure creates or replaces a structure.
func (h *RegistryHandler) PutStructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := jsonapi.DecodeResource[StructureAttributes](w, r, "structures", id)
	if !ok {
		return
	}

	mode := structure.NestingMode(a.NestingMode)
	if mode == "" {
		mode = structure.NestingNested
	}
	st := structure.Structure{
		ID:            id,
		Name:          a.Name,
		Description:   a.Description,
		NestingMode:   mode,
		RootType:      a.RootType,
		ChildTypes:    a.ChildTypes,
		MetricsType:   a.MetricsType,
		RequiredTypes: a.RequiredTypes,
		OptionalTypes: a.OptionalTypes,
	}
	if err := h.registry.PutStructure(r.Context(), st); err != nil {
		h.writeStoreError(w, "structure", id, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, structureResource(st.Normalize()))
}

// DeleteStructure removes a structure.
func (h *RegistryHandler) DeleteStructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.DeleteStructure(r.Context(), id); err != nil {
		h.writeStoreError(w, "structure", id, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

// ListRules returns every stored rule.
func (h *RegistryHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.registry.ListRules(r.Context())
	if err != nil {
		h.writeStoreError(w, "rule", "", err)
		return
	}
	resources := make([]jsonapi.Resource, 0, len(rules))
	for _, rl := range rules {
		resources = append(resources, ruleResource(rl))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// GetRule returns one rule.
func (h *RegistryHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rl, err := h.registry.GetRule(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "rule", id, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, ruleResource(rl))
}

// PutRule creates or replaces a rule.
func (h *RegistryHandler) PutRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := jsonapi.DecodeResource[RuleAttributes](w, r, "rules", id)
	if !ok {
		return
	}

	rl := rule.Rule{
		ID:          id,
		Name:        a.Name,
		Description: a.Description,
		Kind:        rule.Kind(a.Kind),
		Severity:    rule.Severity(a.Severity),
		Pattern:     a.Pattern,
		PatternType: rule.PatternType(a.PatternType),
		Negative:    a.Negative == nil || *a.Negative,
		Message:     a.Message,
		Priority:    a.Priority,
		Enabled:     a.Enabled == nil || *a.Enabled,
	}
	if rl.Kind == "" {
		rl.Kind = rule.KindCustom
	}
	if err := h.registry.PutRule(r.Context(), rl); err != nil {
		h.writeStoreError(w, "rule", id, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, ruleResource(rl))
}

// DeleteRule removes a rule.
func (h *RegistryHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.DeleteRule(r.Context(), id); err != nil {
		h.writeStoreError(w, "rule", id, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

func (h *RegistryHandler) writeStoreError(w http.ResponseWriter, kind, id string, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID(kind, id))
	case errors.Is(err, app.ErrReadOnly):
		jsonapi.WriteError(w, jsonapi.ErrForbidden("The schema source is read-only"))
	case errors.Is(err, app.ErrInvalidDefinition):
		jsonapi.WriteError(w, jsonapi.ErrInvalidDefinition(err.Error()))
	case errors.Is(err, ports.ErrDuplicate):
		jsonapi.WriteError(w, jsonapi.ErrConflict(err.Error()))
	default:
		h.logger.Error().Err(err).Str("kind", kind).Str("id", id).Msg("registry store error")
		jsonapi.WriteInternalError(w, "")
	}
}

func ruleResource(r rule.Rule) jsonapi.Resource {
	return jsonapi.NewResource("rules", r.ID).
		Attr("name", r.Name).
		Attr("description", r.Description).
		Attr("kind", string(r.Kind)).
		Attr("severity", string(r.Severity)).
		Attr("pattern", r.Pattern).
		Attr("pattern_type", string(r.EffectivePatternType())).
		Attr("negative", r.Negative).
		Attr("message", r.Message).
		Attr("priority", r.Priority).
		Attr("enabled", r.Enabled).
		Build()
}
