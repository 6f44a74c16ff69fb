package journal

import "time"

// Outcome is how an optimistic mutation settled
type Outcome string

const (
	OutcomeCommitted       Outcome = "committed"
	OutcomeRolledBack      Outcome = "rolled_back"
	OutcomeRollbackSkipped Outcome = "rollback_skipped"
	OutcomeRemoteOnly      Outcome = "remote_only"
	OutcomeFailed          Outcome = "failed"
)

// Entry is one settled mutation
type Entry struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	Operation string    `json:"operation"`
	EntityID  string    `json:"entity_id,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
