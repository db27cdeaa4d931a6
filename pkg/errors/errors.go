package errors

import (
	"errors"
	"fmt"
)

// NewValidationError creates a single-field validation error
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(DomainValidationError, CodeFieldValidation, message).
		WithDetail("field", field)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *DomainError {
	return NewDomainError(DomainInfrastructureError, CodeInternal, message)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit int, window string) *DomainError {
	return NewDomainError(DomainRateLimitError, CodeRateLimitExceeded,
		fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window)).
		WithRetryable(true)
}

// Helper functions

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType DomainErrorType) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, DomainNotFoundError)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var verrs *ValidationErrors
	return errors.As(err, &verrs) || IsType(err, DomainValidationError)
}

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool {
	return IsType(err, DomainAuthorizationError)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, DomainConflictError)
}

// IsVersionConflict checks for a failed owner+version guard
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflictOrForbidden)
}

// IsRetryable reports whether the caller may retry the operation unchanged
func IsRetryable(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Retryable
}

// Wrap wraps an error with additional context. Domain errors pass through
// untouched so their type survives to the transport layer.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if GetDomainError(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
