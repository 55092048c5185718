// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes and stable error codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

// Error codes returned in the "error" field of error bodies.
const (
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_failed"
	CodeDuplicateName     = "duplicate_name"
	CodeHasDependents     = "has_dependents"
	CodeDefaultAccount    = "default_account"
	CodeSameAccount       = "same_account"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodePersistenceFailed = "persistence_failed"
	CodeRateLimited       = "rate_limited"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter. A 204 or a nil
// payload writes no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: code, Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// UnauthorizedError creates a 401 response for requests without a session.
func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, CodeUnauthorized, core.ErrNoUser.Error())
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// ValidationFailed creates a 422 response listing the invalid fields.
func ValidationFailed(verr *ValidationError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Data(ErrorBody{Error: CodeValidation, Message: "request validation failed", Fields: verr.Fields})
}

// ErrorFromDomain maps an error returned by the ledger store or the request
// decoder to a response.
func ErrorFromDomain(err error) *JSONResponseBuilder {
	var (
		verr *ValidationError
		perr *ledger.PersistError
		derr *core.DependentsError
	)
	switch {
	case errors.As(err, &verr):
		return ValidationFailed(verr)
	case errors.Is(err, errBadBody):
		return BadRequestError(err.Error())
	case errors.As(err, &perr):
		return ErrorResponse(http.StatusBadGateway, CodePersistenceFailed, "the ledger could not be saved, try again")
	case errors.Is(err, core.ErrNoUser):
		return UnauthorizedError()
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrDuplicateName):
		return ErrorResponse(http.StatusConflict, CodeDuplicateName, err.Error())
	case errors.As(err, &derr), errors.Is(err, core.ErrHasDependents):
		return ErrorResponse(http.StatusConflict, CodeHasDependents, err.Error())
	case errors.Is(err, core.ErrDefaultAccount):
		return ErrorResponse(http.StatusConflict, CodeDefaultAccount, err.Error())
	case errors.Is(err, core.ErrSameAccount):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeSameAccount, err.Error())
	case isInvalidInput(err):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeValidation, err.Error())
	default:
		return InternalServerError("unexpected error")
	}
}

func isInvalidInput(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrEmptyCategory,
		core.ErrEmptyName,
		core.ErrNameTooLong,
		core.ErrInvalidInstallments,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
