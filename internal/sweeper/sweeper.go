// Package sweeper is the renewal sweeper (C8): a periodic, cross-tenant
// scan of subscriptions whose next_renewal_at has passed, fanning each
// out into one PRODUCT_RENEWAL task per item.
package sweeper

import (
	"context"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/idempotency"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Config tunes a single sweep run. Interval belongs to the caller that
// schedules runs (cmd/server's ticker); everything here governs the
// shape of one run.
type Config struct {
	BatchSize int
}

type Sweeper struct {
	subs  subscription.Repository
	queue *taskqueue.Queue
	log   *logger.Logger
	cfg   Config
}

func New(subs subscription.Repository, queue *taskqueue.Queue, log *logger.Logger, cfg Config) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Sweeper{subs: subs, queue: queue, log: log, cfg: cfg}
}

// Result carries a single run's observability counters, per §4.8.
type Result struct {
	Found        int
	Processed    int
	TasksCreated int
	Errors       int
}

// Run sweeps every tenant's due subscriptions in one pass, keyset-paginated
// within a tenant-less query (next_renewal_at/status are not tenant
// filtered at this layer - Run is intentionally the one place besides the
// dispatcher's Claim/Reap allowed to cross tenant boundaries).
func (s *Sweeper) Run(ctx context.Context, now time.Time) Result {
	var result Result
	afterID := ""

	for {
		subs, err := s.subs.ListDueForRenewal(ctx, now, afterID, s.cfg.BatchSize)
		if err != nil {
			s.log.Errorw("sweeper: failed to list due subscriptions", "error", err, "after_id", afterID)
			result.Errors++
			return result
		}
		if len(subs) == 0 {
			break
		}
		result.Found += len(subs)

		for _, sub := range subs {
			subCtx := types.WithTenantID(ctx, sub.TenantID)
			created, err := s.sweepOne(subCtx, sub)
			if err != nil {
				s.log.Errorw("sweeper: failed to sweep subscription", "subscription_id", sub.ID, "error", err)
				result.Errors++
				continue
			}
			result.Processed++
			result.TasksCreated += created
		}

		afterID = subs[len(subs)-1].ID
		if len(subs) < s.cfg.BatchSize {
			break
		}
	}

	s.log.Infow("sweeper run complete",
		"found", result.Found, "processed", result.Processed,
		"tasks_created", result.TasksCreated, "errors", result.Errors)
	return result
}

func (s *Sweeper) sweepOne(ctx context.Context, sub *subscription.Subscription) (int, error) {
	items, err := s.subs.ListItems(ctx, sub.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, item := range items {
		err := s.queue.Enqueue(ctx, taskqueue.EnqueueInput{
			TaskType: types.TaskTypeProductRenewal,
			TaskKey:  idempotency.TaskKey("renewal", sub.ID, item.ID),
			DueAt:    time.Now().UTC(),
			Payload: types.JSONMap{
				"subscription_id": sub.ID,
				"item_id":         item.ID,
				"plan_id":         item.PlanID,
			},
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
