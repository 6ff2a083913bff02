package invoice

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Invoice is the immutable snapshot of one billing cycle. Unique on
// (tenant_id, subscription_id, period_start, period_end) - that
// constraint is the idempotency anchor renewProduct relies on to collapse
// duplicate enqueues onto the same row.
type Invoice struct {
	types.BaseModel
	ID             string             `db:"id" json:"id"`
	SubscriptionID string             `db:"subscription_id" json:"subscription_id"`
	CustomerID     string             `db:"customer_id" json:"customer_id"`
	InvoiceNumber  string             `db:"invoice_number" json:"invoice_number"`
	PeriodStart    time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd      time.Time          `db:"period_end" json:"period_end"`
	SubtotalCents  int64              `db:"subtotal_cents" json:"subtotal_cents"`
	TaxCents       int64              `db:"tax_cents" json:"tax_cents"`
	TotalCents     int64              `db:"total_cents" json:"total_cents"`
	Currency       string             `db:"currency" json:"currency"`
	InvoiceStatus  types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	DueDate        time.Time          `db:"due_date" json:"due_date"`
	PaidAt         *time.Time         `db:"paid_at" json:"paid_at,omitempty"`
}

// Line is one component of an invoice's total - one per relevant
// subscription item at the time renewProduct ran.
type Line struct {
	ID             string    `db:"id" json:"id"`
	InvoiceID      string    `db:"invoice_id" json:"invoice_id"`
	Description    string    `db:"description" json:"description"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	TotalCents     int64     `db:"total_cents" json:"total_cents"`
	Currency       string    `db:"currency" json:"currency"`
	PeriodStart    time.Time `db:"period_start" json:"period_start"`
	PeriodEnd      time.Time `db:"period_end" json:"period_end"`
}
