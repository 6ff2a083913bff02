package invoice

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice, lines []*Line) error
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetByCycle implements the idempotent-check renewProduct performs
	// before inserting - returns (nil, ErrNotFound) when no invoice exists
	// yet for this cycle.
	GetByCycle(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*Invoice, error)

	Update(ctx context.Context, inv *Invoice) error
	ListLines(ctx context.Context, invoiceID string) ([]*Line, error)
}
