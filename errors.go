package formview

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeReference     ErrorType = "reference"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

// Field-level messages returned to clients. They are part of the API contract.
const (
	MsgInvalidReferenceID     = "Invalid reference ID"
	MsgReferenceNotFound      = "Referenced submission not found"
	MsgReferenceWrongForm     = "Referenced submission belongs to a different form"
	MsgFieldRequired          = "This field is required"
	MsgSubmissionFormMismatch = "Submission does not belong to the specified form"
)

const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeReferenceValidation = "REFERENCE_VALIDATION_FAILED"
	ErrCodeFormNotFound        = "FORM_NOT_FOUND"
	ErrCodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	ErrCodeViewNotFound        = "VIEW_NOT_FOUND"
	ErrCodeObjectNotFound      = "OBJECT_NOT_FOUND"
	ErrCodeSubmissionMismatch  = "SUBMISSION_FORM_MISMATCH"
	ErrCodeInvalidViewConfig   = "INVALID_VIEW_CONFIG"
	ErrCodeSchemaInvalid       = "SCHEMA_INVALID"
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeReadOnlyStore       = "READ_ONLY_STORE"
	ErrCodeUnsupportedSource   = "UNSUPPORTED_SOURCE"
	ErrCodeQueryFailed         = "QUERY_FAILED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to the error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField adds field context to the error
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// NewError creates a new Error
func NewError(errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a not found error for the given resource kind and id.
func NewNotFoundError(code, resource, id string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{"id": id},
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *Error {
	return NewError(ErrorTypeConfiguration, code, message)
}

// NewInternalError wraps an unexpected failure
func NewInternalError(message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// FieldErrors maps a field's canonical storage key to a single message.
type FieldErrors map[string]string

// Set records msg for key, replacing any earlier message.
func (e FieldErrors) Set(key, msg string) {
	e[key] = msg
}

// Has reports whether key already carries an error.
func (e FieldErrors) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// HasErrors returns true if there are any errors
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// Merge copies other into e. Existing keys keep their message.
func (e FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		if _, ok := e[k]; !ok {
			e[k] = v
		}
	}
}

// Keys returns the field keys in sorted order.
func (e FieldErrors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err converts the collected errors to a *ValidationError of the given kind,
// or nil when there is nothing to report.
func (e FieldErrors) Err(kind ErrorType) error {
	if !e.HasErrors() {
		return nil
	}
	copied := make(FieldErrors, len(e))
	for k, v := range e {
		copied[k] = v
	}
	return &ValidationError{Kind: kind, Errors: copied}
}

// ValidationError rejects a submission. Errors is kept as a mapping so callers
// can render it per field.
type ValidationError struct {
	Kind   ErrorType   `json:"-"`
	Errors FieldErrors `json:"validation_errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, k := range e.Errors.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Errors[k]))
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, ErrCodeValidationFailed, strings.Join(parts, "; "))
}

// IsReferenceError reports whether the failure came from reference integrity checks.
func (e *ValidationError) IsReferenceError() bool {
	return e.Kind == ErrorTypeReference
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if _, ok := AsValidationError(err); ok {
		return true
	}
	return TypeOf(err) == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return TypeOf(err) == ErrorTypeConfiguration
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	if ve, ok := AsValidationError(err); ok {
		return ve.Kind
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeInternal
}
