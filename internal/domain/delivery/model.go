package delivery

import (
	"database/sql/driver"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot freezes the items and shipping address at the moment the
// delivery was created - later address or plan changes never alter a
// delivery already in flight.
type Snapshot struct {
	ShippingAddress types.JSONMap    `json:"shipping_address"`
	Items           []SnapshotItem   `json:"items"`
}

type SnapshotItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

func (s Snapshot) Value() (driver.Value, error) {
	return jsonAPI.Marshal(s)
}

func (s *Snapshot) Scan(src any) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("delivery.Snapshot: unsupported scan source %T", src)
	}
	return jsonAPI.Unmarshal(raw, s)
}

// Instance is one physical-good delivery for one billing cycle. Unique on
// (tenant_id, subscription_id, cycle_key) - createDelivery relies on that
// constraint (via ON CONFLICT DO NOTHING) to converge duplicate task runs
// on the same row.
type Instance struct {
	types.BaseModel
	ID                 string                `db:"id" json:"id"`
	SubscriptionID     string                `db:"subscription_id" json:"subscription_id"`
	InvoiceID          string                `db:"invoice_id" json:"invoice_id"`
	CycleKey           string                `db:"cycle_key" json:"cycle_key"`
	DeliveryStatus     types.DeliveryStatus  `db:"delivery_status" json:"delivery_status"`
	SnapshotData       Snapshot              `db:"snapshot" json:"snapshot"`
	ExternalOrderRef   string                `db:"external_order_ref" json:"external_order_ref,omitempty"`
	CancellationReason string                `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CanceledAt         *time.Time            `db:"canceled_at" json:"canceled_at,omitempty"`
}
