package scheduledtask

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Task is one row of the persistent work list. Unique on (tenant_id,
// task_key) - that constraint is what makes Enqueue an upsert and
// guarantees at-most-one in-flight execution per logical unit of work.
type Task struct {
	ID           string              `db:"id" json:"id"`
	TenantID     string              `db:"tenant_id" json:"tenant_id"`
	TaskType     types.TaskType      `db:"task_type" json:"task_type"`
	TaskKey      string              `db:"task_key" json:"task_key"`
	TaskStatus   types.TaskStatus    `db:"task_status" json:"task_status"`
	DueAt        time.Time           `db:"due_at" json:"due_at"`
	AttemptCount int                 `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int                 `db:"max_attempts" json:"max_attempts"`
	Payload      types.JSONMap       `db:"payload" json:"payload,omitempty"`
	LockedUntil  *time.Time          `db:"locked_until" json:"locked_until,omitempty"`
	LockOwner    string              `db:"lock_owner" json:"lock_owner,omitempty"`
	LastError    string              `db:"last_error" json:"last_error,omitempty"`
	CompletedAt  *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// IsLeaseExpired reports whether a CLAIMED task's lease has lapsed - the
// reaper's selection predicate.
func (t *Task) IsLeaseExpired(now time.Time) bool {
	return t.LockedUntil == nil || t.LockedUntil.Before(now)
}
