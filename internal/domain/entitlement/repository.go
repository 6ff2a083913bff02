package entitlement

import "context"

type Repository interface {
	// Upsert inserts on (tenant_id, customer_id, entitlement_key) or, if a
	// row already exists, extends ValidUntil and reactivates it.
	Upsert(ctx context.Context, e *Entitlement) (*Entitlement, error)

	Get(ctx context.Context, customerID, entitlementKey string) (*Entitlement, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Entitlement, error)
	Revoke(ctx context.Context, customerID, entitlementKey string) error
}
