package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/scheduledtask"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type scheduledTaskRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewScheduledTaskRepository(db *postgres.DB, logger *logger.Logger) scheduledtask.Repository {
	return &scheduledTaskRepository{db: db, logger: logger}
}

func (r *scheduledTaskRepository) Enqueue(ctx context.Context, t *scheduledtask.Task) error {
	query := `
		INSERT INTO scheduled_tasks (
			id, tenant_id, task_type, task_key, task_status, due_at,
			attempt_count, max_attempts, payload, locked_until, lock_owner,
			last_error, completed_at, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :task_type, :task_key, :task_status, :due_at,
			:attempt_count, :max_attempts, :payload, :locked_until, :lock_owner,
			:last_error, :completed_at, :created_at, :updated_at
		)
		ON CONFLICT (tenant_id, task_key) DO UPDATE SET
			task_status = :task_status,
			due_at = EXCLUDED.due_at,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Claim uses a single UPDATE ... FROM (SELECT ... FOR UPDATE SKIP LOCKED)
// statement so the row selection and the CLAIMED transition happen
// atomically - two concurrent workers racing this query never claim the
// same row.
func (r *scheduledTaskRepository) Claim(ctx context.Context, workerID string, lease time.Duration, limit int, now time.Time) ([]*scheduledtask.Task, error) {
	query := `
		WITH candidates AS (
			SELECT id FROM scheduled_tasks
			WHERE task_status = :ready AND due_at <= :now
			ORDER BY due_at ASC
			LIMIT :limit
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_tasks t
		SET task_status = :claimed,
			lock_owner = :worker_id,
			locked_until = :locked_until,
			updated_at = :now
		FROM candidates
		WHERE t.id = candidates.id
		RETURNING t.*
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"ready":        types.TaskStatusReady,
		"claimed":      types.TaskStatusClaimed,
		"now":          now,
		"limit":        limit,
		"worker_id":    workerID,
		"locked_until": now.Add(lease),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*scheduledtask.Task
	for rows.Next() {
		var t scheduledtask.Task
		if err := rows.StructScan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan claimed task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// Complete only transitions a row still CLAIMED - a task cancelled out
// from under a worker mid-handler (e.g. its delivery was cancelled) stays
// CANCELLED rather than being overwritten back to COMPLETED.
func (r *scheduledTaskRepository) Complete(ctx context.Context, taskID string, now time.Time) error {
	query := `
		UPDATE scheduled_tasks SET
			task_status = :status, completed_at = :now, updated_at = :now,
			lock_owner = '', locked_until = NULL
		WHERE id = :id AND task_status = :claimed
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"status":  types.TaskStatusCompleted,
		"now":     now,
		"id":      taskID,
		"claimed": types.TaskStatusClaimed,
	})
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Fail reschedules the task to READY at nextDueAt when attempt_count will
// still be under max_attempts after this failure, otherwise marks it
// FAILED terminally. Guarded to only apply to a row still CLAIMED, so a
// task pre-empted to CANCELLED mid-flight is never dragged back to
// READY/FAILED underneath the cancellation.
func (r *scheduledTaskRepository) Fail(ctx context.Context, taskID string, reason string, nextDueAt time.Time, now time.Time) error {
	query := `
		UPDATE scheduled_tasks SET
			attempt_count = attempt_count + 1,
			last_error = :reason,
			lock_owner = '',
			locked_until = NULL,
			updated_at = :now,
			task_status = CASE
				WHEN attempt_count + 1 >= max_attempts THEN :failed
				ELSE :ready
			END,
			due_at = CASE
				WHEN attempt_count + 1 >= max_attempts THEN due_at
				ELSE :next_due_at
			END
		WHERE id = :id AND task_status = :claimed
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"reason":      reason,
		"now":         now,
		"failed":      types.TaskStatusFailed,
		"ready":       types.TaskStatusReady,
		"claimed":     types.TaskStatusClaimed,
		"next_due_at": nextDueAt,
		"id":          taskID,
	})
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", err)
	}
	return nil
}

func (r *scheduledTaskRepository) Terminate(ctx context.Context, taskID string, reason string, now time.Time) error {
	query := `
		UPDATE scheduled_tasks SET
			task_status = :failed,
			last_error = :reason,
			lock_owner = '',
			locked_until = NULL,
			updated_at = :now
		WHERE id = :id AND task_status = :claimed
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"failed":  types.TaskStatusFailed,
		"reason":  reason,
		"now":     now,
		"id":      taskID,
		"claimed": types.TaskStatusClaimed,
	})
	if err != nil {
		return fmt.Errorf("failed to terminate task: %w", err)
	}
	return nil
}

func (r *scheduledTaskRepository) RenewLease(ctx context.Context, taskID string, lease time.Duration, now time.Time) error {
	query := `UPDATE scheduled_tasks SET locked_until = :locked_until WHERE id = :id AND task_status = :claimed`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"locked_until": now.Add(lease),
		"id":           taskID,
		"claimed":      types.TaskStatusClaimed,
	})
	if err != nil {
		return fmt.Errorf("failed to renew task lease: %w", err)
	}
	return nil
}

func (r *scheduledTaskRepository) Cancel(ctx context.Context, taskID string) error {
	query := `
		UPDATE scheduled_tasks SET task_status = :cancelled, updated_at = :now
		WHERE id = :id AND (task_status = :ready OR task_status = :claimed)
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"cancelled": types.TaskStatusCancelled,
		"now":       time.Now().UTC(),
		"id":        taskID,
		"ready":     types.TaskStatusReady,
		"claimed":   types.TaskStatusClaimed,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return nil
}

func (r *scheduledTaskRepository) Get(ctx context.Context, taskID string) (*scheduledtask.Task, error) {
	query := `SELECT * FROM scheduled_tasks WHERE id = :id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"id": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("task not found").Mark(ierr.ErrNotFound)
	}

	var t scheduledtask.Task
	if err := rows.StructScan(&t); err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}

func (r *scheduledTaskRepository) GetByTaskKey(ctx context.Context, taskKey string) (*scheduledtask.Task, error) {
	query := `SELECT * FROM scheduled_tasks WHERE task_key = :task_key AND tenant_id = :tenant_id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"task_key":  taskKey,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get task by key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("task not found").Mark(ierr.ErrNotFound)
	}

	var t scheduledtask.Task
	if err := rows.StructScan(&t); err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}

// Reap recovers CLAIMED rows abandoned by a worker that died mid-handler,
// returning them to READY so another worker can pick them up.
func (r *scheduledTaskRepository) Reap(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE scheduled_tasks SET
			task_status = :ready, lock_owner = '', locked_until = NULL, updated_at = :now
		WHERE task_status = :claimed AND locked_until < :now
	`
	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"ready":   types.TaskStatusReady,
		"claimed": types.TaskStatusClaimed,
		"now":     now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired tasks: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reap result: %w", err)
	}
	return int(affected), nil
}
