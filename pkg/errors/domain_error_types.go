package errors

import (
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainAuthorizationError indicates insufficient permissions
	DomainAuthorizationError DomainErrorType = "AUTHORIZATION_ERROR"

	// DomainAuthenticationError indicates authentication failure
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"

	// DomainRateLimitError indicates rate limit exceeded
	DomainRateLimitError DomainErrorType = "RATE_LIMIT_ERROR"
)

// Error codes carried by DomainError.Code.
const (
	CodeNotFound                   = "NOT_FOUND"
	CodeForbidden                  = "FORBIDDEN"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeInvalidRange               = "INVALID_RANGE"
	CodeOverlappingAnnotation      = "OVERLAPPING_ANNOTATION"
	CodeAlreadyExists              = "ALREADY_EXISTS"
	CodeVersionConflictOrForbidden = "VERSION_CONFLICT_OR_FORBIDDEN"
	CodeLockContention             = "LOCK_CONTENTION"
	CodeDocumentStillExists        = "DOCUMENT_STILL_EXISTS"
	CodeSnapshotAppendFailed       = "SNAPSHOT_APPEND_FAILED"
	CodeFieldValidation            = "FIELD_VALIDATION_ERROR"
	CodeRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
	CodeInternal                   = "INTERNAL_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is reports whether target is a DomainError with the same type and code.
// Sentinels below are only ever used as targets.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400
	case DomainNotFoundError:
		return 404
	case DomainConflictError:
		return 409
	case DomainAuthenticationError:
		return 401
	case DomainAuthorizationError:
		return 403
	case DomainRateLimitError:
		return 429
	default:
		return 500
	}
}

// Sentinels for errors.Is matching. Use the constructors below to build
// errors that are actually returned.
var (
	ErrNotFound                   = &DomainError{Type: DomainNotFoundError, Code: CodeNotFound}
	ErrForbidden                  = &DomainError{Type: DomainAuthorizationError, Code: CodeForbidden}
	ErrUnauthorized               = &DomainError{Type: DomainAuthenticationError, Code: CodeUnauthorized}
	ErrInvalidRange               = &DomainError{Type: DomainValidationError, Code: CodeInvalidRange}
	ErrOverlappingAnnotation      = &DomainError{Type: DomainConflictError, Code: CodeOverlappingAnnotation}
	ErrAlreadyExists              = &DomainError{Type: DomainConflictError, Code: CodeAlreadyExists}
	ErrVersionConflictOrForbidden = &DomainError{Type: DomainConflictError, Code: CodeVersionConflictOrForbidden}
	ErrLockContention             = &DomainError{Type: DomainConflictError, Code: CodeLockContention}
	ErrDocumentStillExists        = &DomainError{Type: DomainConflictError, Code: CodeDocumentStillExists}
	ErrSnapshotAppendFailed       = &DomainError{Type: DomainInfrastructureError, Code: CodeSnapshotAppendFailed}
	ErrFieldValidation            = &DomainError{Type: DomainValidationError, Code: CodeFieldValidation}
)

// NotFound reports a missing resource.
func NotFound(resource, id string) *DomainError {
	return NewDomainError(DomainNotFoundError, CodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// Forbidden reports that the caller does not own the resource.
func Forbidden(message string) *DomainError {
	if message == "" {
		message = "forbidden"
	}
	return NewDomainError(DomainAuthorizationError, CodeForbidden, message)
}

// Unauthorized reports a missing or invalid caller identity.
func Unauthorized(message string) *DomainError {
	if message == "" {
		message = "unauthorized"
	}
	return NewDomainError(DomainAuthenticationError, CodeUnauthorized, message)
}

// InvalidRange reports a [start, end) range that does not fit the text.
func InvalidRange(start, end, textLength int) *DomainError {
	return NewDomainError(DomainValidationError, CodeInvalidRange,
		fmt.Sprintf("invalid range [%d, %d) for text of length %d", start, end, textLength)).
		WithDetail("start", start).
		WithDetail("end", end).
		WithDetail("textLength", textLength)
}

// OverlappingAnnotation reports the first existing annotation a range collides with.
func OverlappingAnnotation(conflictID string, start, end int) *DomainError {
	return NewDomainError(DomainConflictError, CodeOverlappingAnnotation,
		fmt.Sprintf("range overlaps annotation %s [%d, %d)", conflictID, start, end)).
		WithDetail("conflictingAnnotationId", conflictID).
		WithDetail("start", start).
		WithDetail("end", end)
}

// AlreadyExists reports a create whose key was already taken.
func AlreadyExists(resource, id string) *DomainError {
	return NewDomainError(DomainConflictError, CodeAlreadyExists, fmt.Sprintf("%s already exists", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// VersionConflictOrForbidden reports a failed owner+version guard. The two
// causes are indistinguishable from a single conditional write.
func VersionConflictOrForbidden(docID string, expectedVersion int) *DomainError {
	return NewDomainError(DomainConflictError, CodeVersionConflictOrForbidden,
		"document was modified concurrently or is not owned by the caller").
		WithDetail("docId", docID).
		WithDetail("expectedVersion", expectedVersion).
		WithRetryable(true)
}

// LockContention reports that a per-document lock could not be acquired in time.
func LockContention(resource string) *DomainError {
	return NewDomainError(DomainConflictError, CodeLockContention, "resource is locked by another request").
		WithDetail("resource", resource).
		WithRetryable(true)
}

// DocumentStillExists reports a purge attempted against a live document.
func DocumentStillExists(docID string) *DomainError {
	return NewDomainError(DomainConflictError, CodeDocumentStillExists, "document still exists").
		WithDetail("docId", docID)
}

// SnapshotAppendFailed reports that the document write succeeded but its
// version snapshot did not.
func SnapshotAppendFailed(docID string, version int, cause error) *DomainError {
	return NewDomainError(DomainInfrastructureError, CodeSnapshotAppendFailed, "failed to record version snapshot").
		WithDetail("docId", docID).
		WithDetail("version", version).
		WithCause(cause).
		WithRetryable(true)
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, CodeFieldValidation, message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// Is lets errors.Is(err, ErrFieldValidation) match a collection.
func (v *ValidationErrors) Is(target error) bool {
	return target == ErrFieldValidation
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}
