package payment

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
)

// StripeProvider charges through Stripe's PaymentIntents API, using
// Stripe's own Idempotency-Key header (set per request via
// stripe.Params.IdempotencyKey) rather than an application-level retry
// wrapper, since Stripe itself de-duplicates on that key.
type StripeProvider struct {
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func NewStripeProvider(apiKey string, log *logger.Logger) *StripeProvider {
	stripe.Key = apiKey

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stripe-payment",
		MaxRequests: 5,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &StripeProvider{breaker: cb, log: log}
}

func (p *StripeProvider) ProcessPayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(req.AmountCents),
			Currency: stripe.String(req.Currency),
			Customer: stripe.String(req.CustomerID),
			Confirm:  stripe.Bool(true),
		}
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		return paymentintent.New(params)
	})
	if err != nil {
		if p.breaker.State() == gobreaker.StateOpen {
			return nil, fmt.Errorf("%w: stripe circuit open: %v", ierr.ErrTransient, err)
		}
		return nil, fmt.Errorf("%w: stripe charge failed: %v", ierr.ErrTransient, err)
	}

	pi := result.(*stripe.PaymentIntent)
	return stripeResultFromIntent(pi), nil
}

func (p *StripeProvider) GetPaymentStatus(ctx context.Context, paymentReference string) (*ChargeResult, error) {
	pi, err := paymentintent.Get(paymentReference, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe status lookup failed: %v", ierr.ErrTransient, err)
	}
	return stripeResultFromIntent(pi), nil
}

func (p *StripeProvider) CancelPayment(ctx context.Context, paymentReference string) error {
	_, err := paymentintent.Cancel(paymentReference, nil)
	if err != nil {
		return fmt.Errorf("%w: stripe cancel failed: %v", ierr.ErrTransient, err)
	}
	return nil
}

func (p *StripeProvider) RefundPayment(ctx context.Context, paymentReference string, amountCents *int64, reason string) (*ChargeResult, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentReference)}
	if amountCents != nil {
		params.Amount = stripe.Int64(*amountCents)
	}
	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe refund failed: %v", ierr.ErrTransient, err)
	}
	return &ChargeResult{
		Success:          r.Status == stripe.RefundStatusSucceeded,
		PaymentReference: paymentReference,
		Status:           StatusRefunded,
	}, nil
}

func stripeResultFromIntent(pi *stripe.PaymentIntent) *ChargeResult {
	status := mapStripeStatus(pi.Status)
	return &ChargeResult{
		Success:          status == StatusSucceeded,
		PaymentReference: pi.ID,
		Status:           status,
		ProviderData:     map[string]any{"stripe_status": string(pi.Status)},
	}
}

func mapStripeStatus(s stripe.PaymentIntentStatus) Status {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		return StatusRequiresAction
	case stripe.PaymentIntentStatusCanceled:
		return StatusCancelled
	case stripe.PaymentIntentStatusProcessing:
		return StatusPending
	default:
		return StatusFailed
	}
}
