package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across packages.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownCode     = errors.New("unknown evidence code")
	ErrInvalidTables   = errors.New("invalid gene tables")
	ErrLocusUnresolved = errors.New("locus could not be resolved")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error codes returned in API error bodies
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeUnknownCode    = "UNKNOWN_EVIDENCE_CODE"
	CodeNotFound       = "NOT_FOUND"
	CodeStorageError   = "STORAGE_ERROR"
	CodeInternalServer = "INTERNAL_SERVER_ERROR"
	CodeTimeout        = "REQUEST_TIMEOUT"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
