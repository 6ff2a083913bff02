// Package billing is the billing core (C6): invoice generation, payment
// attempt orchestration, and the post-payment task fan-out. Every
// operation here is meant to be called by the dispatcher under the
// task's tenant context.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/cache"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/invoice"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/payment"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/plan"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/idempotency"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/outboxsvc"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	ppayment "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/provider/payment"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type Core struct {
	db        *postgres.DB
	subs      subscription.Repository
	plans     plan.Repository
	invoices  invoice.Repository
	payments  payment.Repository
	queue     *taskqueue.Queue
	outbox    *outboxsvc.Service
	provider  ppayment.Provider
	planCache cache.Cache
	log       *logger.Logger
}

func New(
	db *postgres.DB,
	subs subscription.Repository,
	plans plan.Repository,
	invoices invoice.Repository,
	payments payment.Repository,
	queue *taskqueue.Queue,
	outbox *outboxsvc.Service,
	provider ppayment.Provider,
	planCache cache.Cache,
	log *logger.Logger,
) *Core {
	return &Core{
		db: db, subs: subs, plans: plans, invoices: invoices, payments: payments,
		queue: queue, outbox: outbox, provider: provider, planCache: planCache, log: log,
	}
}

// RenewProductInput names the domain keys a PRODUCT_RENEWAL task carries
// in its payload.
type RenewProductInput struct {
	SubscriptionID string `json:"subscription_id"`
	ItemID         string `json:"item_id"`
	PlanID         string `json:"plan_id"`
}

// RenewProduct loads the subscription, item and plan, computes the next
// billing period, and idempotently ensures an invoice exists for it
// before enqueueing the payment charge. Calling this twice for the same
// period converges on the same invoice via the store's idempotent-check
// lookup.
func (c *Core) RenewProduct(ctx context.Context, in RenewProductInput) error {
	sub, err := c.subs.Get(ctx, in.SubscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}
	if !sub.IsRenewable() {
		c.log.Infow("subscription no longer renewable, skipping", "subscription_id", sub.ID, "status", sub.SubStatus)
		return nil
	}

	if sub.CancelAtPeriodEnd && !sub.CurrentPeriodEnd.After(time.Now().UTC()) {
		return c.expireAtPeriodEnd(ctx, sub)
	}

	items, err := c.subs.ListItems(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("%w: load subscription items: %v", ierr.ErrTransient, err)
	}
	var item *subscription.Item
	for _, it := range items {
		if it.ID == in.ItemID {
			item = it
			break
		}
	}
	if item == nil {
		return fmt.Errorf("%w: item %s not found on subscription %s", ierr.ErrTerminal, in.ItemID, sub.ID)
	}

	p, err := c.loadPlan(ctx, in.PlanID)
	if err != nil {
		return fmt.Errorf("%w: load plan: %v", ierr.ErrTerminal, err)
	}

	periodStart := sub.CurrentPeriodEnd
	if sub.TrialEnd != nil && sub.CurrentPeriodEnd.Before(*sub.TrialEnd) {
		periodStart = *sub.TrialEnd
	}
	periodEnd := advance(periodStart, p.BillingInterval, p.BillingIntervalCount)

	// The invoice insert, the subscription's period advance, and the
	// CHARGE_PAYMENT enqueue commit as one unit of work: a crash or
	// transient error between them must never leave an OPEN invoice with
	// no task to pay it, nor advance the subscription's period without a
	// matching invoice. The enqueue runs unconditionally, not only on the
	// freshly-created branch, because Enqueue upserts on task_key - a
	// retry that finds the invoice already present (from an earlier,
	// fully-committed run) still guarantees a CHARGE_PAYMENT task exists
	// for it, instead of silently stalling.
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		inv, err := c.invoices.GetByCycle(ctx, sub.ID, periodStart, periodEnd)
		if err != nil && !ierr.IsNotFound(err) {
			return fmt.Errorf("%w: idempotency check: %v", ierr.ErrTransient, err)
		}
		if inv == nil {
			lineTotal := item.UnitPriceCents * int64(item.Quantity)
			inv = &invoice.Invoice{
				BaseModel:      types.BaseModel{TenantID: types.GetTenantID(ctx), Status: types.StatusActive, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
				ID:             types.GenerateIDWithPrefix(types.IDPrefixInvoice),
				SubscriptionID: sub.ID,
				CustomerID:     sub.CustomerID,
				InvoiceNumber:  invoiceNumber(periodStart),
				PeriodStart:    periodStart,
				PeriodEnd:      periodEnd,
				SubtotalCents:  lineTotal,
				TotalCents:     lineTotal,
				Currency:       item.Currency,
				InvoiceStatus:  types.InvoiceStatusOpen,
				DueDate:        periodStart,
			}
			lines := []*invoice.Line{{
				ID:             types.GenerateIDWithPrefix(types.IDPrefixInvoiceLine),
				Description:    fmt.Sprintf("%s (%s)", p.Name, item.ID),
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				TotalCents:     lineTotal,
				Currency:       item.Currency,
				PeriodStart:    periodStart,
				PeriodEnd:      periodEnd,
			}}
			if err := c.invoices.Create(ctx, inv, lines); err != nil {
				if ierr.IsConflict(err) {
					inv, err = c.invoices.GetByCycle(ctx, sub.ID, periodStart, periodEnd)
					if err != nil {
						return fmt.Errorf("%w: re-read invoice after conflict: %v", ierr.ErrTransient, err)
					}
				} else {
					return fmt.Errorf("%w: create invoice: %v", ierr.ErrTransient, err)
				}
			}

			sub.NextRenewalAt = periodEnd
			sub.CurrentPeriodStart = periodStart
			sub.CurrentPeriodEnd = periodEnd
			if err := c.subs.Update(ctx, sub); err != nil {
				return fmt.Errorf("%w: advance subscription period: %v", ierr.ErrTransient, err)
			}
		}

		if err := c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
			TaskType: types.TaskTypeChargePayment,
			TaskKey:  idempotency.TaskKey("payment", inv.ID),
			DueAt:    time.Now().UTC(),
			Payload:  types.JSONMap{"invoice_id": inv.ID},
		}); err != nil {
			return fmt.Errorf("%w: enqueue charge task: %v", ierr.ErrTransient, err)
		}

		return nil
	})
}

// expireAtPeriodEnd finalizes a deferred cancellation: the subscription
// reached its current period end with cancel_at_period_end set, so it
// transitions to CANCELED instead of renewing, and the renewal sweeper
// stops enqueuing further PRODUCT_RENEWAL tasks for it (IsRenewable is
// now false).
func (c *Core) expireAtPeriodEnd(ctx context.Context, sub *subscription.Subscription) error {
	now := time.Now().UTC()
	sub.SubStatus = types.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("%w: finalize deferred cancellation: %v", ierr.ErrTransient, err)
		}
		if err := c.subs.AppendHistory(ctx, &subscription.History{
			ID:              types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory),
			SubscriptionID:  sub.ID,
			Action:          subscription.HistoryActionCanceled,
			PerformedByType: "system",
			PerformedAt:     now,
		}); err != nil {
			return fmt.Errorf("%w: record deferred cancellation history: %v", ierr.ErrTransient, err)
		}
		return c.outbox.Emit(ctx, types.EventSubscriptionCanceled, sub.ID, types.JSONMap{"subscription_id": sub.ID, "reason": "cancel_at_period_end"})
	})
}

// RenewSubscription is the SUBSCRIPTION_RENEWAL handler for the
// single-item degenerate case: it resolves the subscription's sole item
// and defers to RenewProduct.
func (c *Core) RenewSubscription(ctx context.Context, subscriptionID string) error {
	items, err := c.subs.ListItems(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription items: %v", ierr.ErrTransient, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", ierr.ErrTerminal, subscriptionID)
	}
	return c.RenewProduct(ctx, RenewProductInput{
		SubscriptionID: subscriptionID,
		ItemID:         items[0].ID,
		PlanID:         items[0].PlanID,
	})
}

// ChargePayment charges an invoice's payment attempt. Already-PAID
// invoices are a no-op so retried CHARGE_PAYMENT tasks never double
// charge.
func (c *Core) ChargePayment(ctx context.Context, invoiceID string) error {
	inv, err := c.invoices.Get(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%w: load invoice: %v", ierr.ErrTerminal, err)
	}
	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return nil
	}

	attemptNumber, err := c.payments.CountByInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("%w: count payment attempts: %v", ierr.ErrTransient, err)
	}
	attemptNumber++

	attempt := &payment.Attempt{
		BaseModel:     types.BaseModel{TenantID: types.GetTenantID(ctx), Status: types.StatusActive, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
		ID:            types.GenerateIDWithPrefix(types.IDPrefixPaymentAttempt),
		InvoiceID:     inv.ID,
		AmountCents:   inv.TotalCents,
		Currency:      inv.Currency,
		AttemptStatus: types.PaymentAttemptStatusPending,
		AttemptNumber: attemptNumber,
		AttemptedAt:   time.Now().UTC(),
	}
	if err := c.payments.Create(ctx, attempt); err != nil {
		return fmt.Errorf("%w: create payment attempt: %v", ierr.ErrTransient, err)
	}

	result, err := c.provider.ProcessPayment(ctx, ppayment.ChargeRequest{
		InvoiceID:      inv.ID,
		CustomerID:     inv.CustomerID,
		AmountCents:    inv.TotalCents,
		Currency:       inv.Currency,
		IdempotencyKey: idempotency.PaymentAttemptKey(inv.ID, attemptNumber),
	})

	now := time.Now().UTC()
	if err != nil || !result.Success {
		attempt.AttemptStatus = types.PaymentAttemptStatusFailed
		attempt.CompletedAt = &now
		if result != nil {
			attempt.FailureCode = result.ErrorCode
			attempt.FailureReason = result.ErrorMessage
		} else {
			attempt.FailureReason = err.Error()
		}
		txErr := c.db.WithTx(ctx, func(ctx context.Context) error {
			if err := c.payments.Update(ctx, attempt); err != nil {
				return fmt.Errorf("%w: record failed payment attempt: %v", ierr.ErrTransient, err)
			}
			return c.outbox.Emit(ctx, types.EventPaymentFailed, inv.ID, types.JSONMap{
				"invoice_id": inv.ID, "attempt_number": attemptNumber,
			})
		})
		if txErr != nil {
			c.log.Errorw("failed to record failed payment attempt", "invoice_id", inv.ID, "error", txErr)
		}
		return fmt.Errorf("%w: payment attempt %d failed", ierr.ErrTransient, attemptNumber)
	}

	attempt.AttemptStatus = types.PaymentAttemptStatusSucceeded
	attempt.ExternalPaymentID = result.PaymentReference
	attempt.CompletedAt = &now

	// The successful-attempt record, the invoice's PAID transition, the
	// invoice.paid event, and the delivery/entitlement fan-out enqueues
	// commit as one unit: ChargePayment is a no-op once the invoice is
	// PAID, so a crash between marking it PAID and enqueueing the
	// fan-out tasks would otherwise strand a paid invoice with no
	// delivery or entitlement, permanently.
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.payments.Update(ctx, attempt); err != nil {
			return fmt.Errorf("%w: record successful payment attempt: %v", ierr.ErrTransient, err)
		}

		inv.InvoiceStatus = types.InvoiceStatusPaid
		inv.PaidAt = &now
		if err := c.invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("%w: mark invoice paid: %v", ierr.ErrTransient, err)
		}

		if err := c.outbox.Emit(ctx, types.EventInvoicePaid, inv.ID, types.JSONMap{"invoice_id": inv.ID}); err != nil {
			return fmt.Errorf("%w: emit invoice.paid: %v", ierr.ErrTransient, err)
		}

		wantsDelivery, wantsEntitlement, err := c.classifyFulfillment(ctx, inv.SubscriptionID)
		if err != nil {
			return fmt.Errorf("%w: classify fulfillment for subscription %s: %v", ierr.ErrTransient, inv.SubscriptionID, err)
		}

		if wantsDelivery {
			if err := c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
				TaskType: types.TaskTypeCreateDelivery,
				TaskKey:  idempotency.TaskKey("delivery", inv.ID),
				DueAt:    now,
				Payload:  types.JSONMap{"invoice_id": inv.ID},
			}); err != nil {
				return fmt.Errorf("%w: enqueue delivery task: %v", ierr.ErrTransient, err)
			}
		}
		if wantsEntitlement {
			if err := c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
				TaskType: types.TaskTypeGrantEntitlement,
				TaskKey:  idempotency.TaskKey("entitlement", inv.ID),
				DueAt:    now,
				Payload:  types.JSONMap{"invoice_id": inv.ID},
			}); err != nil {
				return fmt.Errorf("%w: enqueue entitlement task: %v", ierr.ErrTransient, err)
			}
		}

		return nil
	})
}

// classifyFulfillment inspects the subscription's items' plan types to
// decide which fan-out tasks a paid invoice should produce. A hybrid plan
// wants both; an unrecognized plan type defaults to entitlement-only so a
// misconfigured plan never schedules a delivery for a good it can't
// actually ship.
func (c *Core) classifyFulfillment(ctx context.Context, subscriptionID string) (wantsDelivery, wantsEntitlement bool, err error) {
	items, err := c.subs.ListItems(ctx, subscriptionID)
	if err != nil {
		return false, false, err
	}
	for _, item := range items {
		p, err := c.loadPlan(ctx, item.PlanID)
		if err != nil {
			return false, false, err
		}
		switch p.PlanType {
		case plan.PlanTypePhysical:
			wantsDelivery = true
		case plan.PlanTypeHybrid:
			wantsDelivery = true
			wantsEntitlement = true
		default:
			wantsEntitlement = true
		}
	}
	return wantsDelivery, wantsEntitlement, nil
}

// EmitPaymentExhausted is called by the dispatcher (or an operator tool)
// once a CHARGE_PAYMENT task reaches its FAILED terminal state - the
// invoice is deliberately left OPEN, per the payment-exhaustion decision
// recorded in SPEC_FULL.md section 13.
func (c *Core) EmitPaymentExhausted(ctx context.Context, invoiceID string) error {
	return c.outbox.Emit(ctx, types.EventSubscriptionPaymentExhausted, invoiceID, types.JSONMap{"invoice_id": invoiceID})
}

func (c *Core) loadPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	key := cache.GenerateKey(cache.PrefixPlan, types.GetTenantID(ctx), planID)
	if cached, ok := c.planCache.Get(ctx, key); ok {
		if p, ok := cached.(*plan.Plan); ok {
			return p, nil
		}
	}
	p, err := c.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	c.planCache.Set(ctx, key, p, 10*time.Minute)
	return p, nil
}

func advance(from time.Time, interval types.BillingInterval, count int) time.Time {
	if count < 1 {
		count = 1
	}
	switch interval {
	case types.BillingIntervalDaily:
		return from.AddDate(0, 0, count)
	case types.BillingIntervalWeekly:
		return from.AddDate(0, 0, 7*count)
	case types.BillingIntervalMonthly:
		return from.AddDate(0, count, 0)
	case types.BillingIntervalQuarterly:
		return from.AddDate(0, 3*count, 0)
	case types.BillingIntervalYearly:
		return from.AddDate(count, 0, 0)
	default:
		return from.AddDate(0, count, 0)
	}
}

func invoiceNumber(periodStart time.Time) string {
	return fmt.Sprintf("INV-%s-%s", periodStart.Format("200601"), types.GenerateID()[:10])
}
