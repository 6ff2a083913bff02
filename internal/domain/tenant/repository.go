package tenant

import "context"

// Repository is consulted by the store layer only to validate a tenant_id
// exists; tenant CRUD itself lives outside this engine's scope.
type Repository interface {
	Get(ctx context.Context, id string) (*Tenant, error)
}
