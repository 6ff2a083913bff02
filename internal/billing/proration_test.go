package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProrateePlanChange_Midpoint(t *testing.T) {
	periodStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	changeAt := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)

	result := ProrateePlanChange(periodStart, periodEnd, changeAt, 3000, 6000)

	assert.Greater(t, result.CreditCents, int64(0))
	assert.Greater(t, result.ChargeCents, int64(0))
	assert.Equal(t, result.ChargeCents-result.CreditCents, result.NetCents)
	assert.Greater(t, result.NetCents, int64(0))
}

func TestProrateePlanChange_ChangeAtPeriodStart(t *testing.T) {
	periodStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	result := ProrateePlanChange(periodStart, periodEnd, periodStart, 3000, 6000)

	assert.Equal(t, int64(3000), result.CreditCents)
	assert.Equal(t, int64(6000), result.ChargeCents)
	assert.Equal(t, int64(3000), result.NetCents)
}

func TestProrateePlanChange_ChangeAfterPeriodEnd(t *testing.T) {
	periodStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	changeAt := periodEnd.AddDate(0, 0, 5)

	result := ProrateePlanChange(periodStart, periodEnd, changeAt, 3000, 6000)

	assert.Equal(t, int64(0), result.CreditCents)
	assert.Equal(t, int64(0), result.ChargeCents)
	assert.Equal(t, int64(0), result.NetCents)
}

func TestProrateePlanChange_ZeroLengthPeriod(t *testing.T) {
	sameInstant := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	result := ProrateePlanChange(sameInstant, sameInstant, sameInstant, 3000, 6000)

	assert.Equal(t, Proration{}, result)
}
