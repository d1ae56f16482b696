package errors

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
)

// ErrorType classifies an AppError. The type decides the HTTP status and the
// problem type an error is reported with.
type ErrorType string

const (
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeNoValidData ErrorType = "NO_VALID_DATA"
	ErrTypeStructure   ErrorType = "STRUCTURE"
	ErrTypeAggregation ErrorType = "AGGREGATION"
)

type typeInfo struct {
	status  int
	problem string
	title   string
}

var typeTable = map[ErrorType]typeInfo{
	ErrTypeValidation:  {http.StatusBadRequest, TypeValidation, "Validation Failed"},
	ErrTypeNotFound:    {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
	ErrTypeParsing:     {http.StatusUnprocessableEntity, TypeWorkbookUnreadable, "Workbook Unreadable"},
	ErrTypeNoValidData: {http.StatusUnprocessableEntity, TypeNoValidData, "No Valid Data"},
	ErrTypeStructure:   {http.StatusUnprocessableEntity, TypeTableStructure, "Unusable Table Structure"},
	ErrTypeAggregation: {http.StatusUnprocessableEntity, TypeAggregation, "Aggregation Failed"},
}

// Status is the HTTP status errors of this type are answered with.
func (t ErrorType) Status() int {
	if info, ok := typeTable[t]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// AppError is a classified failure raised by the loader, the pipeline steps
// and the writers. Context holds the values a log line or problem response
// needs to point at the offending sheet, column or file.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	msg := "[" + string(e.Type) + "] " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another AppError of the same type with an empty message, so
// errors.Is(err, &AppError{Type: ErrTypeNotFound}) tests the class only.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Type == e.Type
}

// WithContext records key on the error and returns it for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogAttrs returns the type and context as slog attributes in key order.
func (e *AppError) LogAttrs() []slog.Attr {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("error_type", string(e.Type)))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Context[k]))
	}
	return attrs
}

// NewAppError creates an AppError of the given type.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause, Context: map[string]interface{}{}}
}

// NewParsingError reports a workbook or cell that could not be decoded.
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError reports a failed read or write on disk.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError reports a request the caller has to fix.
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError reports a missing workbook, sheet, job or artifact.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil).
		WithContext("resource", resource)
}
