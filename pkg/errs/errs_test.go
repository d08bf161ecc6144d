package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassification(t *testing.T) {
	verr := Validationf("user id too long: %d", 120)
	if !errors.Is(verr, ErrValidation) {
		t.Error("expected validation error")
	}
	if errors.Is(verr, ErrProvider) {
		t.Error("validation error must not classify as provider error")
	}

	cause := errors.New("connection refused")
	perr := Provider(cause)
	if !errors.Is(perr, ErrProvider) {
		t.Error("expected provider error")
	}
	if !errors.Is(perr, cause) {
		t.Error("cause must remain in the chain")
	}
}

func TestRetryableMarker(t *testing.T) {
	err := Retryable(Provider(errors.New("timeout")))
	if !IsRetryable(err) {
		t.Error("expected retryable")
	}
	if !errors.Is(err, ErrProvider) {
		t.Error("marker must not hide the category")
	}

	// The marker survives further wrapping.
	wrapped := fmt.Errorf("attempt 2: %w", err)
	if !IsRetryable(wrapped) {
		t.Error("expected retryable after wrapping")
	}

	if IsRetryable(Provider(errors.New("bad request"))) {
		t.Error("unmarked error must not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil must not be retryable")
	}
}

func TestRetryExhausted(t *testing.T) {
	last := errors.New("503 from upstream")
	err := &RetryExhaustedError{Attempts: 3, Err: last}

	if !errors.Is(err, ErrProvider) {
		t.Error("exhausted retry must classify as provider error")
	}
	if !errors.Is(err, last) {
		t.Error("last error must remain in the chain")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("attempt count missing from message: %s", err)
	}

	var re *RetryExhaustedError
	if !errors.As(err, &re) || re.Attempts != 3 {
		t.Error("attempt count must be recoverable with errors.As")
	}
}
