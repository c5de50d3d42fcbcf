package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Execution statuses. A record starts pending and ends in exactly one of the
// terminal states; terminal states are absorbing.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Execution is the durable tracking record for one dispatched unit of remote
// work. The payload carries the installation token handed to the runner, so it
// is never rendered on the API or written to logs.
type Execution struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	RepositoryID uuid.UUID       `db:"repository_id" json:"repository_id"`
	TaskKind     string          `db:"task_kind" json:"task_kind"`
	PayloadJSON  json.RawMessage `db:"payload_json" json:"-"`
	Priority     int             `db:"priority" json:"priority"`
	Status       string          `db:"status" json:"status"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	MaxRetries   int             `db:"max_retries" json:"max_retries"`
	ScheduledAt  *time.Time      `db:"scheduled_at" json:"scheduled_at"`
	StartedAt    *time.Time      `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at"`
	ErrorMessage *string         `db:"error_message" json:"error_message"`
	MetadataJSON json.RawMessage `db:"metadata_json" json:"metadata"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
