// Package taskqueue is the thin service layer over scheduledtask.Repository
// that billing, fulfillment, lifecycle and the sweeper enqueue work
// through - it owns ID generation, default max_attempts, and the backoff
// curve used by the dispatcher's Fail path.
package taskqueue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/scheduledtask"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type Queue struct {
	store       scheduledtask.Repository
	defaultMax  int
	backoffBase time.Duration
}

func New(store scheduledtask.Repository, defaultMaxAttempts int, backoffBaseSeconds int) *Queue {
	return &Queue{
		store:       store,
		defaultMax:  defaultMaxAttempts,
		backoffBase: time.Duration(backoffBaseSeconds) * time.Second,
	}
}

// EnqueueInput is everything a caller supplies; TenantID is read from ctx
// so handlers never have to thread it through by hand.
type EnqueueInput struct {
	TaskType types.TaskType
	TaskKey  string
	DueAt    time.Time
	Payload  types.JSONMap
}

// Enqueue inserts (or upserts, per task_key) a READY task. Callers run
// this inside the same transaction as the state change that produced the
// work, so the task and its cause are co-committed.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) error {
	t := &scheduledtask.Task{
		ID:           types.GenerateIDWithPrefix(types.IDPrefixTask),
		TenantID:     types.GetTenantID(ctx),
		TaskType:     in.TaskType,
		TaskKey:      in.TaskKey,
		TaskStatus:   types.TaskStatusReady,
		DueAt:        in.DueAt,
		AttemptCount: 0,
		MaxAttempts:  q.defaultMax,
		Payload:      in.Payload,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	return q.store.Enqueue(ctx, t)
}

// Claim, Complete, Fail, Terminate, RenewLease, Cancel, Reap delegate
// straight to the store - the dispatcher is the only other caller of
// these, and the store interface is already the narrow one the spec
// calls for.
func (q *Queue) Claim(ctx context.Context, workerID string, lease time.Duration, limit int, now time.Time) ([]*scheduledtask.Task, error) {
	return q.store.Claim(ctx, workerID, lease, limit, now)
}

func (q *Queue) Complete(ctx context.Context, taskID string, now time.Time) error {
	return q.store.Complete(ctx, taskID, now)
}

// Fail computes the next due_at from an exponential-with-jitter curve
// seeded at backoffBase and delegates the READY-vs-FAILED decision to the
// store, which knows the task's current attempt_count/max_attempts.
func (q *Queue) Fail(ctx context.Context, task *scheduledtask.Task, reason string, now time.Time) error {
	nextDueAt := now.Add(q.backoffDuration(task.AttemptCount))
	return q.store.Fail(ctx, task.ID, reason, nextDueAt, now)
}

func (q *Queue) Terminate(ctx context.Context, taskID string, reason string, now time.Time) error {
	return q.store.Terminate(ctx, taskID, reason, now)
}

func (q *Queue) RenewLease(ctx context.Context, taskID string, lease time.Duration, now time.Time) error {
	return q.store.RenewLease(ctx, taskID, lease, now)
}

func (q *Queue) Cancel(ctx context.Context, taskID string) error {
	return q.store.Cancel(ctx, taskID)
}

// CancelByKey cancels the task enqueued under taskKey, if any still exists
// in a cancelable state. Absence of the task is not an error - there may
// never have been one, or it may have already completed.
func (q *Queue) CancelByKey(ctx context.Context, taskKey string) error {
	t, err := q.store.GetByTaskKey(ctx, taskKey)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return q.store.Cancel(ctx, t.ID)
}

func (q *Queue) Reap(ctx context.Context, now time.Time) (int, error) {
	return q.store.Reap(ctx, now)
}

// backoffDuration builds a fresh ExponentialBackOff per call since the
// curve depends only on attemptCount, not on call-to-call state.
func (q *Queue) backoffDuration(attemptCount int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = 30 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for i := 0; i <= attemptCount; i++ {
		d = b.NextBackOff()
	}
	if d > b.MaxInterval {
		d = b.MaxInterval
	}
	return d
}
