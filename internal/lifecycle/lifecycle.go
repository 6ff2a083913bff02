// Package lifecycle is the subscription lifecycle core (C9): the
// TRIALING/ACTIVE/PAUSED/CANCELED/EXPIRED state machine, its create/
// pause/resume/cancel/modify operations, and the TRIAL_END task handler.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/plan"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/idempotency"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/outboxsvc"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type Core struct {
	db     *postgres.DB
	subs   subscription.Repository
	plans  plan.Repository
	queue  *taskqueue.Queue
	outbox *outboxsvc.Service
}

func New(db *postgres.DB, subs subscription.Repository, plans plan.Repository, queue *taskqueue.Queue, outbox *outboxsvc.Service) *Core {
	return &Core{db: db, subs: subs, plans: plans, queue: queue, outbox: outbox}
}

// CreateInput is everything needed to start a new subscription contract.
type CreateInput struct {
	CustomerID       string
	PlanID           string
	Items            []ItemInput
	PaymentMethodRef string
	ShippingAddress  types.JSONMap
	StartAt          time.Time
}

type ItemInput struct {
	PlanID         string
	Quantity       int
	UnitPriceCents int64
	Currency       string
	ItemConfig     types.JSONMap
}

// Create starts a subscription in TRIALING (if the plan carries a trial
// period) or directly ACTIVE, writes the creation history row, emits
// subscription.created, and (for a zero-length trial) ensures the first
// PRODUCT_RENEWAL task exists so the subscription bills immediately.
func (c *Core) Create(ctx context.Context, in CreateInput) (*subscription.Subscription, error) {
	p, err := c.plans.Get(ctx, in.PlanID)
	if err != nil {
		return nil, fmt.Errorf("%w: load plan: %v", ierr.ErrTerminal, err)
	}

	now := in.StartAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	status := types.SubscriptionStatusActive
	var trialStart, trialEnd *time.Time
	periodStart := now
	if p.TrialPeriodDays > 0 {
		status = types.SubscriptionStatusTrialing
		ts := now
		te := now.AddDate(0, 0, p.TrialPeriodDays)
		trialStart, trialEnd = &ts, &te
		periodStart = te
	}

	sub := &subscription.Subscription{
		BaseModel:          types.BaseModel{TenantID: types.GetTenantID(ctx), Status: types.StatusActive, CreatedAt: now, UpdatedAt: now, CreatedBy: types.GetUserID(ctx)},
		ID:                 types.GenerateIDWithPrefix(types.IDPrefixSubscription),
		CustomerID:         in.CustomerID,
		PlanID:             in.PlanID,
		SubStatus:          status,
		PlanSnapshot:       subscription.PlanSnapshot(p.ToSnapshot()),
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodStart,
		NextRenewalAt:      periodStart,
		TrialStart:         trialStart,
		TrialEnd:           trialEnd,
		PaymentMethodRef:   in.PaymentMethodRef,
		ShippingAddress:    in.ShippingAddress,
		Version:            0,
	}

	items := make([]*subscription.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, &subscription.Item{
			ID:             types.GenerateIDWithPrefix(types.IDPrefixSubscriptionItem),
			PlanID:         it.PlanID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			Currency:       it.Currency,
			ItemConfig:     it.ItemConfig,
		})
	}
	if len(items) == 0 {
		items = append(items, &subscription.Item{
			ID:             types.GenerateIDWithPrefix(types.IDPrefixSubscriptionItem),
			PlanID:         in.PlanID,
			Quantity:       1,
			UnitPriceCents: p.BasePriceCents,
			Currency:       p.Currency,
		})
	}

	err = c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Create(ctx, sub, items); err != nil {
			return fmt.Errorf("%w: create subscription: %v", ierr.ErrTransient, err)
		}

		if err := c.outbox.Emit(ctx, types.EventSubscriptionCreated, sub.ID, types.JSONMap{"subscription_id": sub.ID}); err != nil {
			return fmt.Errorf("%w: emit subscription.created: %v", ierr.ErrTransient, err)
		}

		if status == types.SubscriptionStatusActive {
			if err := c.ensureFirstRenewalTask(ctx, sub, items); err != nil {
				return err
			}
		} else if status == types.SubscriptionStatusTrialing {
			if err := c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
				TaskType: types.TaskTypeTrialEnd,
				TaskKey:  idempotency.TaskKey("trial_end", sub.ID),
				DueAt:    *trialEnd,
				Payload:  types.JSONMap{"subscription_id": sub.ID},
			}); err != nil {
				return fmt.Errorf("%w: enqueue trial-end task: %v", ierr.ErrTransient, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Pause transitions ACTIVE→PAUSED.
func (c *Core) Pause(ctx context.Context, subscriptionID, reason string) error {
	return c.transition(ctx, subscriptionID, types.SubscriptionStatusActive, types.SubscriptionStatusPaused, subscription.HistoryActionPaused, reason, types.EventSubscriptionPaused)
}

// Resume transitions PAUSED→ACTIVE.
func (c *Core) Resume(ctx context.Context, subscriptionID string) error {
	return c.transition(ctx, subscriptionID, types.SubscriptionStatusPaused, types.SubscriptionStatusActive, subscription.HistoryActionResumed, "", types.EventSubscriptionResumed)
}

// Cancel transitions the subscription. With immediate=true it moves
// straight to CANCELED; otherwise it just sets cancel_at_period_end and
// the actual transition happens when the current period ends (handled by
// billing.Core.expireAtPeriodEnd).
func (c *Core) Cancel(ctx context.Context, subscriptionID, reason string, immediate bool) error {
	sub, err := c.subs.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}
	if sub.SubStatus == types.SubscriptionStatusCanceled || sub.SubStatus == types.SubscriptionStatusExpired {
		return nil
	}

	if !immediate {
		sub.CancelAtPeriodEnd = true
		return c.db.WithTx(ctx, func(ctx context.Context) error {
			if err := c.subs.Update(ctx, sub); err != nil {
				return fmt.Errorf("%w: defer cancellation: %v", ierr.ErrTransient, err)
			}
			return c.appendHistoryAndEmit(ctx, sub, subscription.HistoryActionModified, reason, types.EventSubscriptionCanceled)
		})
	}

	now := time.Now().UTC()
	sub.SubStatus = types.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	sub.CancellationReason = reason
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("%w: cancel subscription: %v", ierr.ErrTransient, err)
		}
		return c.appendHistoryAndEmit(ctx, sub, subscription.HistoryActionCanceled, reason, types.EventSubscriptionCanceled)
	})
}

// ModifyInput names the fields Modify is allowed to change; nil/zero
// fields are left untouched.
type ModifyInput struct {
	PlanID          *string
	ShippingAddress types.JSONMap
}

// Modify changes plan and/or shipping address, writing a history row with
// the old/new values. Already-produced invoice, delivery, and entitlement
// snapshots are immutable and never touched by this.
func (c *Core) Modify(ctx context.Context, subscriptionID string, in ModifyInput) error {
	sub, err := c.subs.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}

	metadata := types.JSONMap{}
	if in.PlanID != nil && *in.PlanID != sub.PlanID {
		p, err := c.plans.Get(ctx, *in.PlanID)
		if err != nil {
			return fmt.Errorf("%w: load new plan: %v", ierr.ErrTerminal, err)
		}
		metadata["old_plan_id"] = sub.PlanID
		metadata["new_plan_id"] = *in.PlanID
		sub.PlanID = *in.PlanID
		sub.PlanSnapshot = subscription.PlanSnapshot(p.ToSnapshot())
	}
	if in.ShippingAddress != nil {
		metadata["old_shipping_address"] = sub.ShippingAddress
		metadata["new_shipping_address"] = in.ShippingAddress
		sub.ShippingAddress = in.ShippingAddress
	}
	if len(metadata) == 0 {
		return nil
	}

	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("%w: update subscription: %v", ierr.ErrTransient, err)
		}
		if err := c.subs.AppendHistory(ctx, &subscription.History{
			ID:              types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory),
			SubscriptionID:  sub.ID,
			Action:          subscription.HistoryActionModified,
			PerformedBy:     types.GetUserID(ctx),
			PerformedByType: "user",
			Metadata:        metadata,
			PerformedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("%w: record modification history: %v", ierr.ErrTransient, err)
		}
		return c.outbox.Emit(ctx, types.EventSubscriptionModified, sub.ID, metadata)
	})
}

// TrialEnd is the TRIAL_END task handler: transitions a TRIALING
// subscription whose trial has elapsed to ACTIVE and ensures the first
// paid cycle's renewal task exists.
func (c *Core) TrialEnd(ctx context.Context, subscriptionID string) error {
	sub, err := c.subs.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}
	if sub.SubStatus != types.SubscriptionStatusTrialing {
		return nil
	}
	if sub.TrialEnd == nil || sub.TrialEnd.After(time.Now().UTC()) {
		return fmt.Errorf("%w: trial_end fired before trial_end time for subscription %s", ierr.ErrTerminal, sub.ID)
	}

	items, err := c.subs.ListItems(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("%w: load subscription items: %v", ierr.ErrTransient, err)
	}

	sub.SubStatus = types.SubscriptionStatusActive
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("%w: activate subscription: %v", ierr.ErrTransient, err)
		}
		if err := c.subs.AppendHistory(ctx, &subscription.History{
			ID:              types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory),
			SubscriptionID:  sub.ID,
			Action:          subscription.HistoryActionResumed,
			PerformedByType: "system",
			PerformedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("%w: record trial-end history: %v", ierr.ErrTransient, err)
		}
		if err := c.outbox.Emit(ctx, types.EventSubscriptionTrialEnded, sub.ID, types.JSONMap{"subscription_id": sub.ID, "reason": "trial_end"}); err != nil {
			return fmt.Errorf("%w: emit trial-end event: %v", ierr.ErrTransient, err)
		}
		return c.ensureFirstRenewalTask(ctx, sub, items)
	})
}

func (c *Core) ensureFirstRenewalTask(ctx context.Context, sub *subscription.Subscription, items []*subscription.Item) error {
	for _, item := range items {
		if err := c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
			TaskType: types.TaskTypeProductRenewal,
			TaskKey:  idempotency.TaskKey("renewal", sub.ID, item.ID),
			DueAt:    sub.NextRenewalAt,
			Payload: types.JSONMap{
				"subscription_id": sub.ID,
				"item_id":         item.ID,
				"plan_id":         item.PlanID,
			},
		}); err != nil {
			return fmt.Errorf("%w: enqueue first renewal task: %v", ierr.ErrTransient, err)
		}
	}
	return nil
}

func (c *Core) transition(ctx context.Context, subscriptionID string, from, to types.SubscriptionStatus, action subscription.HistoryAction, reason string, event types.OutboxEventType) error {
	sub, err := c.subs.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}
	if sub.SubStatus != from {
		return fmt.Errorf("%w: subscription %s is %s, expected %s", ierr.ErrConflict, sub.ID, sub.SubStatus, from)
	}
	sub.SubStatus = to
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("%w: transition subscription: %v", ierr.ErrTransient, err)
		}
		return c.appendHistoryAndEmit(ctx, sub, action, reason, event)
	})
}

func (c *Core) appendHistoryAndEmit(ctx context.Context, sub *subscription.Subscription, action subscription.HistoryAction, reason string, event types.OutboxEventType) error {
	var meta types.JSONMap
	if reason != "" {
		meta = types.JSONMap{"reason": reason}
	}
	if err := c.subs.AppendHistory(ctx, &subscription.History{
		ID:              types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory),
		SubscriptionID:  sub.ID,
		Action:          action,
		PerformedBy:     types.GetUserID(ctx),
		PerformedByType: "user",
		Metadata:        meta,
		PerformedAt:     time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("%w: record history: %v", ierr.ErrTransient, err)
	}
	return c.outbox.Emit(ctx, event, sub.ID, types.JSONMap{"subscription_id": sub.ID})
}
