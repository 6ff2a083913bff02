package outbox

import (
	"context"
	"time"
)

type Repository interface {
	// Emit inserts the event row in the caller's current transaction - the
	// one operation C3 exposes.
	Emit(ctx context.Context, e *Event) error

	// Get loads a single event - used by the webhook relay's dispatch
	// loop to rehydrate the event a due delivery points at.
	Get(ctx context.Context, id string) (*Event, error)

	// ListUnpublished returns unpublished rows FIFO by created_at, cross-
	// tenant, bounded by limit - the webhook relay's fan-out loop input.
	ListUnpublished(ctx context.Context, limit int) ([]*Event, error)

	MarkPublished(ctx context.Context, eventID string, now time.Time) error
}
