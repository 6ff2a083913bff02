package entitlement

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Entitlement is a grant of access keyed on (tenant_id, customer_id,
// entitlement_key) - upserted on every grant so a renewal extends
// ValidUntil instead of creating a second row.
type Entitlement struct {
	types.BaseModel
	ID                string                   `db:"id" json:"id"`
	CustomerID        string                   `db:"customer_id" json:"customer_id"`
	SubscriptionID    string                   `db:"subscription_id" json:"subscription_id"`
	EntitlementType   string                   `db:"entitlement_type" json:"entitlement_type"`
	EntitlementKey    string                   `db:"entitlement_key" json:"entitlement_key"`
	EntitlementStatus types.EntitlementStatus  `db:"entitlement_status" json:"entitlement_status"`
	ValidFrom         time.Time                `db:"valid_from" json:"valid_from"`
	ValidUntil        time.Time                `db:"valid_until" json:"valid_until"`
	Payload           types.JSONMap            `db:"payload" json:"payload,omitempty"`
	ExternalRef       string                   `db:"external_ref" json:"external_ref,omitempty"`
}
