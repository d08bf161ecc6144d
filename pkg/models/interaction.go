package models

import "time"

// Input bounds enforced defensively by the orchestrator. Validation
// proper happens upstream; these mirror its limits.
const (
	MaxUserIDLength  = 100
	MaxContentLength = 4000
)

// Interaction is one persisted request/response pair. Interactions are
// append-only: the id is assigned once by the orchestrator and a record
// is never updated after creation.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Response  string    `json:"response"`
	Model     string    `json:"model,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
