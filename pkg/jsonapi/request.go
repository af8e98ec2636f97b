package jsonapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by Decode.
const MaxBodyBytes = 10 << 20

// ResourceBody is a request document holding one resource whose attributes
// decode into T.
type ResourceBody[T any] struct {
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes T      `json:"attributes"`
	} `json:"data"`
}

// Decode reads a JSON body into v, writing a 400 and returning false when it
// is empty, too large or malformed.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			WriteBadRequest(w, "Request body is required")
			return false
		}
		WriteBadRequest(w, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// DecodeResource reads a resource document for a PUT to /{typ}/{id}. The
// document's type, when set, must equal typ and its id, when set, must equal
// id; either mismatch is a 409.
func DecodeResource[T any](w http.ResponseWriter, r *http.Request, typ, id string) (T, bool) {
	var body ResourceBody[T]
	if !Decode(w, r, &body) {
		return body.Data.Attributes, false
	}
	switch {
	case body.Data.Type != "" && body.Data.Type != typ:
		WriteError(w, ErrConflict("Resource type must be "+typ))
		return body.Data.Attributes, false
	case body.Data.ID != "" && body.Data.ID != id:
		WriteError(w, ErrConflict("Resource id does not match the URL"))
		return body.Data.Attributes, false
	}
	return body.Data.Attributes, true
}
