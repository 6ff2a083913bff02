// Package payment defines the payment provider contract the core
// consumes (§6) and the sandbox/Stripe-backed adapters implementing it.
package payment

import "context"

// Status mirrors the provider-side lifecycle of a single charge attempt.
type Status string

const (
	StatusSucceeded     Status = "SUCCEEDED"
	StatusPending       Status = "PENDING"
	StatusRequiresAction Status = "REQUIRES_ACTION"
	StatusFailed        Status = "FAILED"
	StatusCancelled     Status = "CANCELLED"
	StatusRefunded      Status = "REFUNDED"
)

type ChargeRequest struct {
	InvoiceID        string
	CustomerID       string
	AmountCents      int64
	Currency         string
	PaymentMethodRef string
	IdempotencyKey   string
	Metadata         map[string]string
}

type ChargeResult struct {
	Success          bool
	PaymentReference string
	Status           Status
	ErrorCode        string
	ErrorMessage     string
	ProviderData     map[string]any
}

// Provider is the opaque contract every concrete adapter implements. The
// adapter owns idempotency-key handling across retries - callers supply
// the same key on every retry of the same logical charge.
type Provider interface {
	ProcessPayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	GetPaymentStatus(ctx context.Context, paymentReference string) (*ChargeResult, error)
	CancelPayment(ctx context.Context, paymentReference string) error
	RefundPayment(ctx context.Context, paymentReference string, amountCents *int64, reason string) (*ChargeResult, error)
}
