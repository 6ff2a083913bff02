package subscription

import (
	"context"
	"time"
)

// Repository is the typed access point for subscriptions, their items,
// and their audit history. Every method is tenant-scoped via the calling
// context (see internal/types.GetTenantID).
type Repository interface {
	Create(ctx context.Context, sub *Subscription, items []*Item) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	ListItems(ctx context.Context, subscriptionID string) ([]*Item, error)

	// ListDueForRenewal returns ACTIVE subscriptions whose next_renewal_at
	// has passed, ordered by id for keyset pagination. afterID is the last
	// id seen in the previous page, "" for the first page.
	ListDueForRenewal(ctx context.Context, now time.Time, afterID string, limit int) ([]*Subscription, error)

	AppendHistory(ctx context.Context, h *History) error
	ListHistory(ctx context.Context, subscriptionID string) ([]*History, error)
}
