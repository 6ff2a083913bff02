package plan

import (
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// PlanLifecycleStatus is the plan's own active/inactive toggle, distinct
// from types.Status which tracks soft-deletion.
type PlanLifecycleStatus string

const (
	PlanLifecycleActive   PlanLifecycleStatus = "active"
	PlanLifecycleInactive PlanLifecycleStatus = "inactive"
)

// Recognized values for Plan.PlanType - the fulfillment core switches on
// this to decide whether a paid invoice line produces a physical
// delivery, a digital entitlement grant, or both.
const (
	PlanTypePhysical = "physical"
	PlanTypeDigital  = "digital"
	PlanTypeHybrid   = "hybrid"
)

// Plan is immutable pricing once a subscription references it - new
// subscriptions always take a frozen snapshot (Subscription.PlanSnapshot)
// rather than following the live row, so changing a Plan here never
// rewrites history for subscriptions already on it.
type Plan struct {
	types.BaseModel
	ID                   string                 `db:"id" json:"id"`
	Name                 string                 `db:"name" json:"name"`
	BasePriceCents       int64                  `db:"base_price_cents" json:"base_price_cents"`
	Currency             string                 `db:"currency" json:"currency"`
	BillingInterval      types.BillingInterval  `db:"billing_interval" json:"billing_interval"`
	BillingIntervalCount int                    `db:"billing_interval_count" json:"billing_interval_count"`
	TrialPeriodDays      int                    `db:"trial_period_days" json:"trial_period_days"`
	PlanType             string                 `db:"plan_type" json:"plan_type"`
	LifecycleStatus      PlanLifecycleStatus    `db:"lifecycle_status" json:"lifecycle_status"`
}

// Snapshot freezes the fields a subscription needs at creation time. It
// is what gets stored in Subscription.PlanSnapshot, not a live pointer to
// this Plan row.
type Snapshot struct {
	PlanID               string                `json:"plan_id"`
	Name                 string                `json:"name"`
	BasePriceCents       int64                 `json:"base_price_cents"`
	Currency             string                `json:"currency"`
	BillingInterval      types.BillingInterval `json:"billing_interval"`
	BillingIntervalCount int                   `json:"billing_interval_count"`
}

func (p *Plan) ToSnapshot() Snapshot {
	return Snapshot{
		PlanID:               p.ID,
		Name:                 p.Name,
		BasePriceCents:       p.BasePriceCents,
		Currency:             p.Currency,
		BillingInterval:      p.BillingInterval,
		BillingIntervalCount: p.BillingIntervalCount,
	}
}
