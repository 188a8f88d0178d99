// Package apperrors defines the error taxonomy shared by the services and the
// HTTP layer, and the mapping from those errors to HTTP responses.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned when required fields are missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when no valid credential was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is authenticated but does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("already exists")
	// ErrUpload is returned when an uploaded file cannot be accepted or stored.
	ErrUpload = errors.New("upload failed")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UploadError describes why an uploaded file was rejected.
type UploadError struct {
	Reason string
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

func (e *UploadError) Unwrap() error { return e.Err }

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPStatus maps an error to the status code the API reports for it.
func HTTPStatus(err error) int {
	var uploadErr *UploadError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &uploadErr):
		if uploadErr.Status != 0 {
			return uploadErr.Status
		}
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse builds the client-safe body for err. Internal errors are never echoed.
func ToResponse(err error) ErrorResponse {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		var uploadErr *UploadError
		if errors.As(err, &uploadErr) {
			return ErrorResponse{Error: uploadErr.Reason}
		}
		return ErrorResponse{Error: "Internal server error"}
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorResponse{Error: validationErr.Error(), Fields: validationErr.Fields}
	}
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return ErrorResponse{Error: uploadErr.Reason}
	}

	var public *publicError
	switch {
	case errors.As(err, &public):
		return ErrorResponse{Error: public.msg}
	case errors.Is(err, ErrUnauthorized):
		return ErrorResponse{Error: "Unauthorized"}
	default:
		return ErrorResponse{Error: err.Error()}
	}
}

// Write sends err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	json.NewEncoder(w).Encode(ToResponse(err))
}

// NotFound wraps ErrNotFound with the kind of record that was missing, e.g. "Profile not found".
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a caller-facing explanation.
func Forbidden(msg string) error {
	return &publicError{kind: ErrForbidden, msg: msg}
}

// Unauthorized wraps ErrUnauthorized with a caller-facing explanation, e.g. "Invalid credentials".
func Unauthorized(msg string) error {
	return &publicError{kind: ErrUnauthorized, msg: msg}
}

// Invalid wraps ErrValidation with a single caller-facing message.
func Invalid(msg string) error {
	return &publicError{kind: ErrValidation, msg: msg}
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(msg string) error {
	return &publicError{kind: ErrConflict, msg: msg}
}

// publicError is a sentinel-classified error whose message is safe to return.
type publicError struct {
	kind error
	msg  string
}

func (e *publicError) Error() string { return e.msg }

func (e *publicError) Is(target error) bool { return target == e.kind }
