package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorBuilder builds an Error.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error with the given status, code and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Status: strconv.Itoa(status), Code: code, Title: title}}
}

// Detail sets the human-readable detail.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Pointer sets the JSON pointer to the offending request member.
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	b.err.Source = &ErrorSource{Pointer: pointer}
	return b
}

// Build returns the error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns Status as an int, or 0 when it does not parse.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// statusError builds an error titled after the status text, falling back to
// fallback when detail is empty.
func statusError(status int, code, detail, fallback string) Error {
	if detail == "" {
		detail = fallback
	}
	return NewError(status, code, http.StatusText(status)).Detail(detail).Build()
}

// ErrBadRequest is a 400 for bodies that cannot be read.
func ErrBadRequest(detail string) Error {
	return statusError(http.StatusBadRequest, "bad_request", detail, "Malformed request")
}

// ErrUnauthorized is a 401 for registry writes without a valid admin token.
func ErrUnauthorized(detail string) Error {
	return statusError(http.StatusUnauthorized, "unauthorized", detail, "Authentication required")
}

// ErrForbidden is a 403, returned for writes to a read-only schema source.
func ErrForbidden(detail string) Error {
	return statusError(http.StatusForbidden, "forbidden", detail, "Access denied")
}

// ErrNotFoundWithID is a 404 naming the missing resource.
func ErrNotFoundWithID(resourceType, id string) Error {
	return statusError(http.StatusNotFound, "not_found",
		fmt.Sprintf("The %s with ID '%s' was not found", resourceType, id), "")
}

// ErrConflict is a 409, used for id or type mismatches and duplicates.
func ErrConflict(detail string) Error {
	return statusError(http.StatusConflict, "conflict", detail, "Conflict")
}

// ErrValidation is a 422 pointing at the attribute field.
func ErrValidation(field, message string) Error {
	return NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
		Detail(message).
		Pointer("/data/attributes/" + field).
		Build()
}

// ErrValidationRequired is ErrValidation for a missing field.
func ErrValidationRequired(field string) Error {
	return ErrValidation(field, field+" is required")
}

// ErrInvalidDefinition is a 422 for a structure or rule the registry refuses:
// a broken invariant or a pattern that does not compile.
func ErrInvalidDefinition(detail string) Error {
	return NewError(http.StatusUnprocessableEntity, "invalid_definition", "Invalid Definition").
		Detail(detail).
		Build()
}

// ErrTooManyRequests is a 429 from the /v1 rate limiter.
func ErrTooManyRequests(detail string) Error {
	return statusError(http.StatusTooManyRequests, "rate_limit_exceeded", detail, "Rate limit exceeded")
}

// ErrInternal is a 500 that hides the cause from the client.
func ErrInternal(detail string) Error {
	return statusError(http.StatusInternalServerError, "internal_error", detail, "An internal error occurred")
}
