package customer

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Customer is the billable party a subscription belongs to. Unique on
// (tenant_id, email) and on (tenant_id, external_id) where external_id is
// present.
type Customer struct {
	types.BaseModel
	ID         string          `db:"id" json:"id"`
	Email      string          `db:"email" json:"email"`
	ExternalID string          `db:"external_id" json:"external_id,omitempty"`
	Attributes types.JSONMap   `db:"attributes" json:"attributes,omitempty"`
}
