package subscription

import (
	"database/sql/driver"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/plan"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Subscription is the long-lived financial contract between a customer and
// a plan. CurrentPeriodStart/CurrentPeriodEnd/NextRenewalAt are
// the clock the renewal sweeper (C8) and billing core (C6) drive off of;
// PlanSnapshot is written once at creation and never touched again, so a
// later price change on Plan does not retroactively alter this contract.
type Subscription struct {
	types.BaseModel
	ID                 string                     `db:"id" json:"id"`
	CustomerID         string                     `db:"customer_id" json:"customer_id"`
	PlanID             string                     `db:"plan_id" json:"plan_id"`
	SubStatus          types.SubscriptionStatus   `db:"sub_status" json:"sub_status"`
	PlanSnapshot        PlanSnapshot              `db:"plan_snapshot" json:"plan_snapshot"`
	CurrentPeriodStart time.Time                  `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time                  `db:"current_period_end" json:"current_period_end"`
	NextRenewalAt      time.Time                  `db:"next_renewal_at" json:"next_renewal_at"`
	TrialStart         *time.Time                 `db:"trial_start" json:"trial_start,omitempty"`
	TrialEnd           *time.Time                 `db:"trial_end" json:"trial_end,omitempty"`
	PaymentMethodRef   string                     `db:"payment_method_ref" json:"payment_method_ref,omitempty"`
	ShippingAddress    types.JSONMap              `db:"shipping_address" json:"shipping_address,omitempty"`
	CancelAtPeriodEnd  bool                       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CanceledAt         *time.Time                 `db:"canceled_at" json:"canceled_at,omitempty"`
	CancellationReason string                     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	Version            int                        `db:"version" json:"version"`
}

// PlanSnapshot wraps plan.Snapshot with jsonb scan/value so it can sit
// directly on the Subscription struct as a single immutable column.
type PlanSnapshot plan.Snapshot

func (s PlanSnapshot) Value() (driver.Value, error) {
	return jsonAPI.Marshal(plan.Snapshot(s))
}

func (s *PlanSnapshot) Scan(src any) error {
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
		return fmt.Errorf("subscription.PlanSnapshot: unsupported scan source %T", src)
	}
	var out plan.Snapshot
	if err := jsonAPI.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = PlanSnapshot(out)
	return nil
}

// IsRenewable reports whether the subscription should still accrue
// renewals - RenewProduct skips a subscription for which it is false. The
// sweeper's SQL selects on the same ACTIVE status without calling it.
func (s *Subscription) IsRenewable() bool {
	return s.SubStatus == types.SubscriptionStatusActive
}
