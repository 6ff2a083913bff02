package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proration computes a time-weighted credit/charge for a mid-cycle plan
// change: credit for the unused remainder of the current item's period at
// its old rate, charged against the new rate for the same remainder.
// Intermediate math stays in decimal.Decimal; only the final result is
// rounded, half-up, to the nearest cent.
type Proration struct {
	CreditCents int64
	ChargeCents int64
	NetCents    int64
}

// ProrateePlanChange prorates switching from a plan priced oldPriceCents
// per period to one priced newPriceCents per period, effective at
// changeAt, for a period running [periodStart, periodEnd).
func ProrateePlanChange(periodStart, periodEnd, changeAt time.Time, oldPriceCents, newPriceCents int64) Proration {
	totalDays := decimal.NewFromInt(int64(periodEnd.Sub(periodStart).Hours() / 24))
	if totalDays.IsZero() {
		return Proration{}
	}

	remainingDays := decimal.NewFromInt(int64(periodEnd.Sub(changeAt).Hours() / 24))
	if remainingDays.IsNegative() {
		remainingDays = decimal.Zero
	}
	if remainingDays.GreaterThan(totalDays) {
		remainingDays = totalDays
	}

	oldDailyRate := decimal.NewFromInt(oldPriceCents).Div(totalDays)
	newDailyRate := decimal.NewFromInt(newPriceCents).Div(totalDays)

	credit := oldDailyRate.Mul(remainingDays).Round(0)
	charge := newDailyRate.Mul(remainingDays).Round(0)

	return Proration{
		CreditCents: credit.IntPart(),
		ChargeCents: charge.IntPart(),
		NetCents:    charge.Sub(credit).IntPart(),
	}
}
