// Package errs defines the error taxonomy shared across chatcore.
//
// Every failure surfaced by the core wraps one of the sentinel categories
// below, so callers classify with errors.Is without depending on which
// backend or provider produced the failure.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input. Never retried; maps to a client fault.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks a failure of the text-generation backend.
	ErrProvider = errors.New("provider error")
	// ErrStorage marks a failure of the persistence layer.
	ErrStorage = errors.New("storage error")
	// ErrConfiguration marks bad settings. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)

// Validationf returns a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Configf returns a configuration error with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Provider wraps err as a provider error, preserving the cause chain.
func Provider(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

// Providerf returns a provider error with a formatted message.
func Providerf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}

// Storage wraps err as a storage error, preserving the cause chain.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Storagef returns a storage error with a formatted message.
func Storagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStorage, fmt.Sprintf(format, args...))
}

// retryable marks a transient failure eligible for retry.
type retryable struct{ err error }

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

// Retryable marks err as transient. Validation and configuration errors
// must never be marked retryable.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryable{err: err}
}

// IsRetryable reports whether err, or any error it wraps, is transient.
func IsRetryable(err error) bool {
	var r *retryable
	return errors.As(err, &r)
}

// RetryExhaustedError is the terminal error raised after every retry
// attempt against a provider has failed. It classifies as ErrProvider
// and keeps the attempt count and last underlying error for
// observability.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("provider error: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProvider) match an exhausted retry.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrProvider }
