// Package http exposes validation and the schema registry over HTTP.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/domain/callout"
	"github.com/artpar/calloutlint/domain/diagnostic"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/pkg/jsonapi"
	"github.com/rs/zerolog"
)

// ValidateRequest is the body of POST /v1/validate and /v1/detect.
type ValidateRequest struct {
	Text        string `json:"text"`
	StructureID string `json:"structure_id,omitempty"`
}

// FixRequest is the body of POST /v1/fix.
type FixRequest struct {
	Text        string `json:"text"`
	StructureID string `json:"structure_id,omitempty"`
	ResultID    string `json:"result_id"`
	FixIndex    int    `json:"fix_index"`
}

// ValidationHandler serves validation passes.
type ValidationHandler struct {
	service *app.ValidationService
	logger  zerolog.Logger
}

// NewValidationHandler creates a new validation handler.
func NewValidationHandler(service *app.ValidationService, logger zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{service: service, logger: logger}
}

// Validate runs a validation pass and returns the results as a collection.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}

	pass := h.service.Run(req.Text, req.StructureID)

	resources := make([]jsonapi.Resource, 0, len(pass.Results))
	errorsFound := 0
	for _, res := range pass.Results {
		resources = append(resources, resultResource(res))
		if res.Severity == rule.SeverityError {
			errorsFound++
		}
	}

	doc := jsonapi.NewCollectionDocument(resources)
	doc.Meta["structure_id"] = pass.Structure.ID
	doc.Meta["matched"] = pass.Matched
	doc.Meta["errors"] = errorsFound
	jsonapi.WriteDocument(w, http.StatusOK, doc)
}

// Detect returns the detected structure, or a document with only meta when
// nothing matches.
func (h *ValidationHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}

	st, ok := h.service.DetectStructure(req.Text)
	if !ok {
		jsonapi.WriteDocument(w, http.StatusOK, jsonapi.NewDocument().Meta("detected", false).Build())
		return
	}
	doc := jsonapi.NewSingleResourceDocument(structureResource(st))
	doc.Meta = jsonapi.Meta{"detected": true}
	jsonapi.WriteDocument(w, http.StatusOK, doc)
}

// Blocks returns the callout forest of the text.
func (h *ValidationHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}

	f := h.service.Blocks(req.Text)
	resources := make([]jsonapi.Resource, 0, f.Len())
	for i, b := range f.Blocks {
		resources = append(resources, blockResource(i, b))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// Fix re-validates the text, finds the result by id and applies one of its
// quick fixes.
func (h *ValidationHandler) Fix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if !jsonapi.Decode(w, r, &req) {
		return
	}
	if req.ResultID == "" {
		jsonapi.WriteError(w, jsonapi.ErrValidationRequired("result_id"))
		return
	}

	fixed, err := h.service.FixByID(req.Text, req.StructureID, req.ResultID, req.FixIndex)
	if errors.Is(err, app.ErrResultNotFound) {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("result", req.ResultID))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("apply quick fix")
		jsonapi.WriteInternalError(w, "")
		return
	}

	jsonapi.WriteDocument(w, http.StatusOK, jsonapi.NewDocument().
		Meta("text", fixed).
		Meta("applied", fixed != req.Text).
		Build())
}

func resultResource(r diagnostic.Result) jsonapi.Resource {
	fixes := make([]map[string]any, 0, len(r.QuickFixes))
	for i, f := range r.QuickFixes {
		fixes = append(fixes, map[string]any{
			"index": i,
			"title": f.Title,
			"kind":  string(f.Kind),
		})
	}
	return jsonapi.NewResource("results", r.ID).
		Attr("severity", string(r.Severity)).
		Attr("category", string(r.Category)).
		Attr("message", r.Message).
		Attr("rule_id", r.RuleID).
		Attr("structure_id", r.StructureID).
		Attr("priority", r.Priority).
		Attr("span", map[string]int{"start": r.Span.Start, "end": r.Span.End}).
		Attr("range", map[string]any{
			"start": map[string]int{"line": r.Range.Start.Line, "col": r.Range.Start.Col},
			"end":   map[string]int{"line": r.Range.End.Line, "col": r.Range.End.Col},
		}).
		Attr("quick_fixes", fixes).
		Build()
}

func blockResource(i int, b callout.Block) jsonapi.Resource {
	children := b.Children
	if children == nil {
		children = []int{}
	}
	rb := jsonapi.NewResource("blocks", strconv.Itoa(i)).
		Attr("type", b.Type).
		Attr("title", b.Title).
		Attr("depth", b.Depth).
		Attr("line", b.Line).
		Attr("span", map[string]int{"start": b.Span.Start, "end": b.Span.End}).
		Attr("content", b.Content).
		Attr("children", children)
	if b.Parent >= 0 {
		rb.Attr("parent", b.Parent)
	}
	return rb.Build()
}

func structureResource(st structure.Structure) jsonapi.Resource {
	return jsonapi.NewResource("structures", st.ID).
		Attr("name", st.Name).
		Attr("description", st.Description).
		Attr("nesting_mode", string(st.NestingMode)).
		Attr("root_type", st.RootType).
		Attr("child_types", nonNil(st.ChildTypes)).
		Attr("metrics_type", st.MetricsType).
		Attr("required_types", nonNil(st.RequiredTypes)).
		Attr("optional_types", nonNil(st.OptionalTypes)).
		Build()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
