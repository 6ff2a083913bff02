package subscription

import (
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Item is one independently renewable line within a subscription.
// Ecommerce subscriptions hold several; a plain SaaS subscription
// typically holds one.
type Item struct {
	ID             string        `db:"id" json:"id"`
	SubscriptionID string        `db:"subscription_id" json:"subscription_id"`
	PlanID         string        `db:"plan_id" json:"plan_id"`
	Quantity       int           `db:"quantity" json:"quantity"`
	UnitPriceCents int64         `db:"unit_price_cents" json:"unit_price_cents"`
	Currency       string        `db:"currency" json:"currency"`
	ItemConfig     types.JSONMap `db:"item_config" json:"item_config,omitempty"`
}
