// Package fulfillment is the fulfillment core (C7): turning a paid
// invoice into a physical delivery and/or a granted entitlement, and
// driving the delivery through the commerce provider.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/delivery"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/entitlement"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/invoice"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/plan"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/idempotency"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/outboxsvc"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/provider/commerce"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type Core struct {
	db           *postgres.DB
	deliveries   delivery.Repository
	entitlements entitlement.Repository
	invoices     invoice.Repository
	subs         subscription.Repository
	plans        plan.Repository
	queue        *taskqueue.Queue
	outbox       *outboxsvc.Service
	commerce     commerce.Provider
	log          *logger.Logger
}

func New(
	db *postgres.DB,
	deliveries delivery.Repository,
	entitlements entitlement.Repository,
	invoices invoice.Repository,
	subs subscription.Repository,
	plans plan.Repository,
	queue *taskqueue.Queue,
	outbox *outboxsvc.Service,
	commerceProvider commerce.Provider,
	log *logger.Logger,
) *Core {
	return &Core{
		db: db, deliveries: deliveries, entitlements: entitlements, invoices: invoices,
		subs: subs, plans: plans, queue: queue, outbox: outbox, commerce: commerceProvider, log: log,
	}
}

// CreateDelivery derives the delivery for a paid invoice and enqueues the
// order-creation task. It converges: calling it twice for the same
// invoice always lands on the same delivery row.
func (c *Core) CreateDelivery(ctx context.Context, invoiceID string) error {
	inv, err := c.invoices.Get(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%w: load invoice: %v", ierr.ErrTerminal, err)
	}
	lines, err := c.invoices.ListLines(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("%w: load invoice lines: %v", ierr.ErrTransient, err)
	}
	sub, err := c.subs.Get(ctx, inv.SubscriptionID)
	if err != nil {
		return fmt.Errorf("%w: load subscription: %v", ierr.ErrTerminal, err)
	}

	items := make([]delivery.SnapshotItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, delivery.SnapshotItem{
			ProductID:      l.ID,
			ProductName:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
	}

	d := &delivery.Instance{
		BaseModel:      types.BaseModel{TenantID: types.GetTenantID(ctx), Status: types.StatusActive, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
		ID:             types.GenerateIDWithPrefix(types.IDPrefixDelivery),
		SubscriptionID: inv.SubscriptionID,
		InvoiceID:      inv.ID,
		CycleKey:       cycleKey(inv.PeriodStart, inv.PeriodEnd),
		DeliveryStatus: types.DeliveryStatusPending,
		SnapshotData: delivery.Snapshot{
			ShippingAddress: sub.ShippingAddress,
			Items:           items,
		},
	}

	return c.db.WithTx(ctx, func(ctx context.Context) error {
		created, err := c.deliveries.CreateIfAbsent(ctx, d)
		if err != nil {
			return fmt.Errorf("%w: create delivery: %v", ierr.ErrTransient, err)
		}
		d = created

		if err := c.outbox.Emit(ctx, types.EventDeliveryCreated, d.ID, types.JSONMap{"delivery_id": d.ID, "invoice_id": inv.ID}); err != nil {
			return fmt.Errorf("%w: emit delivery.created: %v", ierr.ErrTransient, err)
		}

		if d.DeliveryStatus != types.DeliveryStatusPending {
			return nil
		}

		return c.queue.Enqueue(ctx, taskqueue.EnqueueInput{
			TaskType: types.TaskTypeCreateOrder,
			TaskKey:  idempotency.TaskKey("order", d.ID),
			DueAt:    time.Now().UTC(),
			Payload:  types.JSONMap{"delivery_id": d.ID},
		})
	})
}

// CreateOrder places the order with the commerce provider for a pending
// delivery and advances it to ORDER_CREATED.
func (c *Core) CreateOrder(ctx context.Context, deliveryID string) error {
	d, err := c.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return fmt.Errorf("%w: load delivery: %v", ierr.ErrTerminal, err)
	}
	if d.DeliveryStatus != types.DeliveryStatusPending {
		c.log.Infow("delivery no longer pending, skipping order creation", "delivery_id", d.ID, "status", d.DeliveryStatus)
		return nil
	}

	items := make([]commerce.OrderItem, 0, len(d.SnapshotData.Items))
	for _, it := range d.SnapshotData.Items {
		items = append(items, commerce.OrderItem{
			ProductID: it.ProductID, ProductName: it.ProductName,
			Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents, TotalCents: it.TotalCents,
		})
	}

	result, err := c.commerce.CreateOrder(ctx, commerce.OrderRequest{
		DeliveryID:      d.ID,
		Items:           items,
		ShippingAddress: d.SnapshotData.ShippingAddress,
		Metadata:        map[string]string{"idempotency_key": idempotency.OrderIdempotencyKey(d.ID)},
	})
	if err != nil || !result.Success {
		return fmt.Errorf("%w: create order for delivery %s: %v", ierr.ErrTransient, d.ID, err)
	}

	d.DeliveryStatus = types.DeliveryStatusOrderCreated
	d.ExternalOrderRef = result.ExternalRef
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.deliveries.Update(ctx, d); err != nil {
			return fmt.Errorf("%w: update delivery after order creation: %v", ierr.ErrTransient, err)
		}
		return c.outbox.Emit(ctx, types.EventOrderCreated, d.ID, types.JSONMap{
			"delivery_id": d.ID, "external_order_ref": result.ExternalRef,
		})
	})
}

// GrantEntitlement upserts one entitlement per invoice line for the
// subscription's customer, extending ValidUntil to the new period end.
func (c *Core) GrantEntitlement(ctx context.Context, invoiceID string) error {
	inv, err := c.invoices.Get(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("%w: load invoice: %v", ierr.ErrTerminal, err)
	}
	lines, err := c.invoices.ListLines(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("%w: load invoice lines: %v", ierr.ErrTransient, err)
	}

	now := time.Now().UTC()
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		for _, l := range lines {
			e := &entitlement.Entitlement{
				BaseModel:         types.BaseModel{TenantID: types.GetTenantID(ctx), Status: types.StatusActive, CreatedAt: now, UpdatedAt: now},
				ID:                types.GenerateIDWithPrefix(types.IDPrefixEntitlement),
				CustomerID:        inv.CustomerID,
				SubscriptionID:    inv.SubscriptionID,
				EntitlementType:   "subscription_item",
				EntitlementKey:    entitlementKey(inv.SubscriptionID, l.ID),
				EntitlementStatus: types.EntitlementStatusActive,
				ValidFrom:         inv.PeriodStart,
				ValidUntil:        inv.PeriodEnd,
			}
			if _, err := c.entitlements.Upsert(ctx, e); err != nil {
				return fmt.Errorf("%w: upsert entitlement for line %s: %v", ierr.ErrTransient, l.ID, err)
			}
		}

		return c.outbox.Emit(ctx, types.EventEntitlementGranted, inv.ID, types.JSONMap{"invoice_id": inv.ID})
	})
}

// CancelDelivery cancels a still-pending delivery, along with its
// CREATE_ORDER task if that task is still READY or CLAIMED. A delivery whose order has
// already been created is left alone - cancellation past that point is a
// commerce-provider operation this core does not perform automatically.
func (c *Core) CancelDelivery(ctx context.Context, deliveryID, reason string) error {
	d, err := c.deliveries.Get(ctx, deliveryID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: load delivery: %v", ierr.ErrTerminal, err)
	}
	if d.DeliveryStatus != types.DeliveryStatusPending {
		return fmt.Errorf("%w: delivery %s is %s, not pending", ierr.ErrConflict, d.ID, d.DeliveryStatus)
	}

	now := time.Now().UTC()
	return c.db.WithTx(ctx, func(ctx context.Context) error {
		if err := c.queue.CancelByKey(ctx, idempotency.TaskKey("order", d.ID)); err != nil {
			return fmt.Errorf("%w: cancel pending order task: %v", ierr.ErrTransient, err)
		}

		d.DeliveryStatus = types.DeliveryStatusCanceled
		d.CancellationReason = reason
		d.CanceledAt = &now
		if err := c.deliveries.Update(ctx, d); err != nil {
			return fmt.Errorf("%w: update canceled delivery: %v", ierr.ErrTransient, err)
		}

		return c.outbox.Emit(ctx, types.EventDeliveryCanceled, d.ID, types.JSONMap{"delivery_id": d.ID, "reason": reason})
	})
}

func cycleKey(periodStart, periodEnd time.Time) string {
	return fmt.Sprintf("%s_%s", periodStart.Format("20060102"), periodEnd.Format("20060102"))
}

func entitlementKey(subscriptionID, lineID string) string {
	return fmt.Sprintf("%s:%s", subscriptionID, lineID)
}
