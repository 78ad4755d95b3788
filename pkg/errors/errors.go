package errors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a provider or backing service could not be reached
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream API answered with an error
	ErrExternal = errors.New("external service error")

	// ErrMalformedResponse indicates an upstream payload had an unexpected shape
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRateLimitExceeded indicates an outbound rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// ValidationError represents a validation error with field-specific details.
// It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

// Transport returns the cause of an HTTP client error without the request
// URL, so credentials carried in a query string never reach messages.
func Transport(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s %s: %w", uerr.Op, redactedHost(uerr.URL), uerr.Err)
	}
	return err
}

func redactedHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "upstream"
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// PublicMessage describes err for end users. Validation and not-found
// messages are passed through; anything else is reduced to its category so
// upstream details stay in the logs.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrInvalidInput), Is(err, ErrNotFound):
		return err.Error()
	case Is(err, ErrRateLimitExceeded):
		return "upstream rate limit exceeded, try again later"
	case Is(err, ErrTimeout), Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case Is(err, ErrUnavailable):
		return "an upstream service is unavailable"
	case Is(err, ErrExternal), Is(err, ErrMalformedResponse):
		return "an upstream service returned an error"
	default:
		return "internal error"
	}
}
