// Package apperrors defines the error taxonomy shared by the idea store, the
// pipeline and the HTTP layer.
//
// Sentinel errors identify a condition and are matched with errors.Is.
// ValidationError, UpstreamError and StoreError carry context and are matched
// with errors.As; the latter two also match their sentinel through Is.
package apperrors

import (
	"errors"
	"fmt"
)

// Re-exported so callers only need one errors import.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

var (
	// ErrNotFound indicates no idea exists for a slug.
	ErrNotFound = New("idea not found")
	// ErrDuplicateTerminalIdea indicates a resubmission of a published or skipped idea.
	ErrDuplicateTerminalIdea = New("idea already exists in a terminal state")
	// ErrStatusConflict indicates the record changed status underneath a conditional write.
	ErrStatusConflict = New("idea status changed concurrently")
	// ErrInvalidTransition indicates a status change the lifecycle does not allow.
	ErrInvalidTransition = New("invalid status transition")
	// ErrStoreUnavailable indicates the key-value service failed.
	ErrStoreUnavailable = New("key-value store unavailable")
	// ErrGeneration indicates the generation service failed or returned nothing.
	ErrGeneration = New("generation service error")
	// ErrPublication indicates the version-control service failed.
	ErrPublication = New("publication service error")
	// ErrRateLimited indicates the caller exceeded its hourly submission ceiling.
	ErrRateLimited = New("rate limit exceeded")
	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = New("unauthorized")
)

// ValidationCode names the kind of validation failure
type ValidationCode string

const (
	CodeMissingField ValidationCode = "MissingField"
	CodeTitleTooLong ValidationCode = "TitleTooLong"
	CodeInvalidTag   ValidationCode = "InvalidTag"
	CodeInvalidRisk  ValidationCode = "InvalidRisk"
)

// ValidationError reports a malformed idea submission.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
	Value   interface{}    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds a ValidationError
func NewValidationError(code ValidationCode, field, message string, value interface{}) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message, Value: value}
}

// Upstream service names
const (
	ServiceGeneration  = "generation"
	ServicePublication = "publication"
)

// UpstreamError wraps a failure of the generation or publication service.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Service, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is matches ErrGeneration or ErrPublication according to the service.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrGeneration:
		return e.Service == ServiceGeneration
	case ErrPublication:
		return e.Service == ServicePublication
	}
	return false
}

// Generation returns an UpstreamError for the generation service
func Generation(op string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Service: ServiceGeneration, Op: op, StatusCode: statusCode, Err: err}
}

// Publication returns an UpstreamError for the publication service
func Publication(op string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Service: ServicePublication, Op: op, StatusCode: statusCode, Err: err}
}

// StoreError wraps a key-value backend failure.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("kv %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("kv %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// Store wraps err as a StoreError, passing nil through
func Store(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

// IsUpstream reports whether err came from the generation or publication service
func IsUpstream(err error) bool {
	var up *UpstreamError
	return As(err, &up)
}

// IsUserFacing reports whether err is safe to show verbatim to API callers
func IsUserFacing(err error) bool {
	var ve *ValidationError
	if As(err, &ve) {
		return true
	}
	for _, target := range []error{
		ErrNotFound, ErrDuplicateTerminalIdea, ErrStatusConflict,
		ErrInvalidTransition, ErrRateLimited, ErrUnauthorized,
	} {
		if Is(err, target) {
			return true
		}
	}
	return false
}
