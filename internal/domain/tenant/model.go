package tenant

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Tenant is the identity boundary every other entity is scoped under. The
// core never deletes a tenant while dependent rows exist; it is created
// by administrative action outside this engine's scope.
type Tenant struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Status    types.Status `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
