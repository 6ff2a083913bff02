package delivery

import "context"

type Repository interface {
	// CreateIfAbsent inserts the delivery with ON CONFLICT DO NOTHING on
	// (tenant_id, subscription_id, cycle_key) and always returns the row
	// that exists afterward, so duplicate createDelivery calls converge
	// on one instance.
	CreateIfAbsent(ctx context.Context, d *Instance) (*Instance, error)

	Get(ctx context.Context, id string) (*Instance, error)
	GetByCycleKey(ctx context.Context, subscriptionID, cycleKey string) (*Instance, error)
	Update(ctx context.Context, d *Instance) error
}
