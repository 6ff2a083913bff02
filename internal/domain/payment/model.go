package payment

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Attempt is one charge attempt against the payment provider for an
// invoice. Each retry inserts a new row - the invoice is PAID only once
// some attempt reaches SUCCEEDED, so this table is the audit trail of
// every try, not just the last one.
type Attempt struct {
	types.BaseModel
	ID                string                      `db:"id" json:"id"`
	InvoiceID         string                      `db:"invoice_id" json:"invoice_id"`
	AmountCents       int64                       `db:"amount_cents" json:"amount_cents"`
	Currency          string                      `db:"currency" json:"currency"`
	AttemptStatus     types.PaymentAttemptStatus  `db:"attempt_status" json:"attempt_status"`
	PaymentMethodRef  string                      `db:"payment_method_ref" json:"payment_method_ref,omitempty"`
	ExternalPaymentID string                      `db:"external_payment_id" json:"external_payment_id,omitempty"`
	FailureCode       string                      `db:"failure_code" json:"failure_code,omitempty"`
	FailureReason     string                      `db:"failure_reason" json:"failure_reason,omitempty"`
	AttemptNumber     int                         `db:"attempt_number" json:"attempt_number"`
	AttemptedAt       time.Time                   `db:"attempted_at" json:"attempted_at"`
	CompletedAt       *time.Time                  `db:"completed_at" json:"completed_at,omitempty"`
}
