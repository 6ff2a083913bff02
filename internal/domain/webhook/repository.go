package webhook

import (
	"context"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// EndpointRepository is the CRUD surface the admin API exposes for
// webhook endpoints (register/list/update/delete, per §6).
type EndpointRepository interface {
	Create(ctx context.Context, e *Endpoint) error
	Get(ctx context.Context, id string) (*Endpoint, error)
	List(ctx context.Context) ([]*Endpoint, error)
	Update(ctx context.Context, e *Endpoint) error
	Delete(ctx context.Context, id string) error

	// ListActiveSubscribedTo returns tenantID's active endpoints whose
	// subscription includes eventType (an empty subscription list matches
	// every event type) - the fan-out loop's per-event lookup.
	ListActiveSubscribedTo(ctx context.Context, tenantID string, eventType types.OutboxEventType) ([]*Endpoint, error)
}

// DeliveryRepository is the relay's own work queue, separate from
// scheduledtask.Repository since its retry semantics (per-endpoint HTTP
// POST, signature header) differ from generic task handlers.
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error

	// ListDue returns PENDING deliveries with next_attempt_at <= now and
	// attempt_count < max_attempts, FIFO, cross-tenant.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)

	Update(ctx context.Context, d *Delivery) error
}
