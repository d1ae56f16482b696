package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Codes carried in the error_code field of API problems.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeNotFound             = "NOT_FOUND"
	CodeAnalysisNotFound     = "ANALYSIS_NOT_FOUND"
	CodeAnalysisNotReady     = "ANALYSIS_NOT_READY"
	CodeAnalysisFinished     = "ANALYSIS_FINISHED"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeQueueFull            = "QUEUE_FULL"
	CodeWebSocketUpgrade     = "WEBSOCKET_UPGRADE_FAILED"
)

// codeProblems maps codes onto problem types; anything else is internal.
var codeProblems = map[string]string{
	CodeInvalidRequest:       TypeValidation,
	CodeValidationFailed:     TypeValidation,
	CodePayloadTooLarge:      TypeValidation,
	CodeUnsupportedMediaType: TypeValidation,
	CodeNotFound:             TypeNotFound,
	CodeAnalysisNotFound:     TypeNotFound,
	CodeAnalysisNotReady:     TypeConflict,
	CodeAnalysisFinished:     TypeConflict,
	CodeRateLimitExceeded:    TypeRateLimit,
	CodeQueueFull:            TypeRateLimit,
}

// APIError is an error raised directly by the HTTP layer with a fixed status
// and code.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ProblemType returns the RFC 7807 type URI for the error code.
func (e *APIError) ProblemType() string {
	if t, ok := codeProblems[e.ErrorCode]; ok {
		return t
	}
	return TypeInternal
}

// WithStatus copies e under another status with details attached.
func (e *APIError) WithStatus(status int, details interface{}) *APIError {
	return NewWithDetails(status, e.ErrorCode, e.Message, details)
}

// ValidationError names one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrAnalysisNotFound  = New(http.StatusNotFound, CodeAnalysisNotFound, "analysis not found")
	ErrAnalysisNotReady  = New(http.StatusConflict, CodeAnalysisNotReady, "analysis has not completed")
	ErrAnalysisFinished  = New(http.StatusConflict, CodeAnalysisFinished, "analysis already finished")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
	ErrQueueFull         = New(http.StatusServiceUnavailable, CodeQueueFull, "analysis queue is full, retry later")
	ErrWebSocketUpgrade  = New(http.StatusInternalServerError, CodeWebSocketUpgrade, "WebSocket upgrade failed")
)

// InvalidRequestWithError reports a body that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation reports a single invalid field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NotFoundError reports a missing resource by name.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}
