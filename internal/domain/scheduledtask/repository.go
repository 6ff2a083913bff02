package scheduledtask

import (
	"context"
	"time"
)

// Repository implements the task queue's lease/claim/complete/fail
// lifecycle directly over the scheduled_tasks table. Every method besides
// Claim and Reap is tenant-scoped through ctx; Claim and Reap are the two
// cross-tenant operations the dispatcher's own store access is allowed to
// make.
type Repository interface {
	// Enqueue inserts a READY task, or if (tenant_id, task_key) already
	// exists, updates it back to READY with the given due_at and payload -
	// the upsert that makes duplicate enqueues collapse onto one row.
	Enqueue(ctx context.Context, t *Task) error

	// Claim atomically transitions up to limit READY-and-due rows to
	// CLAIMED under row-level locking that skips rows already locked by a
	// concurrent claim, and returns the claimed rows.
	Claim(ctx context.Context, workerID string, lease time.Duration, limit int, now time.Time) ([]*Task, error)

	Complete(ctx context.Context, taskID string, now time.Time) error

	// Fail increments attempt_count and either reschedules the task to
	// READY with a backoff due_at, or marks it FAILED once max_attempts is
	// reached.
	Fail(ctx context.Context, taskID string, reason string, nextDueAt time.Time, now time.Time) error

	// Terminate marks the task FAILED immediately regardless of
	// attempt_count - used when a handler determines the failure can
	// never succeed on retry (missing plan, unknown task type).
	Terminate(ctx context.Context, taskID string, reason string, now time.Time) error

	// RenewLease extends locked_until for a handler that needs more time
	// than the default lease - an explicit lease-extension call rather
	// than relying on short handlers alone.
	RenewLease(ctx context.Context, taskID string, lease time.Duration, now time.Time) error

	// Cancel transitions a READY or CLAIMED task to CANCELLED. A CLAIMED
	// cancellation takes effect once its lease lapses - the running
	// handler, if any, is not interrupted.
	Cancel(ctx context.Context, taskID string) error

	Get(ctx context.Context, taskID string) (*Task, error)

	// GetByTaskKey looks a task up by its dedup key - used to find and
	// cancel a not-yet-claimed follow-on task (e.g. a pending CREATE_ORDER)
	// when the delivery it belongs to is canceled first.
	GetByTaskKey(ctx context.Context, taskKey string) (*Task, error)

	// Reap returns CLAIMED rows whose locked_until has passed to READY -
	// recovery from a worker that died mid-handler. Cross-tenant by
	// design.
	Reap(ctx context.Context, now time.Time) (int, error)
}
