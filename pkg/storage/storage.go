// Package storage defines the interaction log contract. Backends live in
// the sqlite and dynamo subpackages and must behave identically despite
// different consistency models.
package storage

import (
	"context"

	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

// DefaultHistoryLimit applies when a caller passes a non-positive limit.
const DefaultHistoryLimit = 10

// Repository is the append-style interaction log.
//
// Failure taxonomy: connectivity and timeout failures surface as
// errs.ErrStorage and are safe for the caller to retry; a malformed
// interaction (missing required field) surfaces as errs.ErrValidation
// and must not be retried.
type Repository interface {
	// Startup opens connections and runs migrations.
	Startup(ctx context.Context) error
	// Shutdown releases connections.
	Shutdown(ctx context.Context) error
	// Save appends one interaction. It stamps CreatedAt when zero, so a
	// caller retrying the same value writes an identical record, and it
	// is idempotent: a second save with an already-stored id is a no-op.
	Save(ctx context.Context, in *models.Interaction) error
	// GetHistory returns up to limit interactions for userID, newest
	// first. A user with no history yields an empty slice, not an error.
	GetHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
	// HealthCheck does a minimal round trip and reports false on any
	// connectivity or timeout error. It never panics.
	HealthCheck(ctx context.Context) bool
}

// ValidateForSave rejects interactions missing required fields. These
// are programming errors: they fail fast and are never retried.
func ValidateForSave(in *models.Interaction) error {
	switch {
	case in == nil:
		return errs.Validationf("interaction is nil")
	case in.ID == "":
		return errs.Validationf("interaction id is required")
	case in.UserID == "":
		return errs.Validationf("interaction user id is required")
	case in.Content == "":
		return errs.Validationf("interaction content is required")
	default:
		return nil
	}
}
