package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	// Extensions are copied onto the problem document as top-level members.
	Extensions map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// With returns a copy of e carrying an extra problem member.
func (e *APIError) With(key string, value interface{}) *APIError {
	cp := *e
	cp.Extensions = make(map[string]interface{}, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		cp.Extensions[k] = v
	}
	cp.Extensions[key] = value
	return &cp
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"

	CodeNoFiles        = "NO_FILES_UPLOADED"
	CodeTooManyFiles   = "TOO_MANY_FILES"
	CodeNoValidData    = "NO_VALID_DATA"
	CodeMissingColumns = "MISSING_COLUMNS"
	CodeSessionMissing = "SESSION_NOT_FOUND"
	CodeNoDataset      = "NO_DATASET"
)

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")
	ErrNoFilesUploaded  = New(http.StatusBadRequest, CodeNoFiles, "No files were uploaded")
	ErrTooManyFiles     = New(http.StatusBadRequest, CodeTooManyFiles, "Too many files in one upload")

	// 404 Not Found
	ErrNotFound        = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrSessionNotFound = New(http.StatusNotFound, CodeSessionMissing, "Session not found or expired")

	// 409 Conflict
	ErrNoDataset = New(http.StatusConflict, CodeNoDataset, "Upload campaign data before requesting this view")

	// 413 Payload Too Large
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body exceeds the upload limit")

	// 422 Unprocessable Entity
	ErrNoValidData = New(http.StatusUnprocessableEntity, CodeNoValidData, "No valid data found in uploaded files")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred while processing your request")

	// 503 Service Unavailable
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed").With("errors", errs)
}

// MissingColumns reports an upload lacking required headers.
func MissingColumns(schema string, missing []string) *APIError {
	return New(
		http.StatusUnprocessableEntity,
		CodeMissingColumns,
		fmt.Sprintf("Uploaded data is missing required columns for the %s schema", schema),
	).With("schema", schema).With("missing", missing)
}
