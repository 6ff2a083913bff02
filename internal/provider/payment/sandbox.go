package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// SandboxProvider is a deterministic fake used when payment.provider_name
// is "sandbox" - local development and tests run without a live Stripe
// account. A payment method ref ending in "_decline" always fails, so
// retry/exhaustion paths are exercisable without provider-side setup.
type SandboxProvider struct {
	mu    sync.Mutex
	state map[string]*ChargeResult
}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{state: make(map[string]*ChargeResult)}
}

func (p *SandboxProvider) ProcessPayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := types.GenerateIDWithPrefix("sbx_pay")
	result := &ChargeResult{PaymentReference: ref}

	if strings.HasSuffix(req.PaymentMethodRef, "_decline") {
		result.Success = false
		result.Status = StatusFailed
		result.ErrorCode = "card_declined"
		result.ErrorMessage = "sandbox: payment method configured to decline"
	} else {
		result.Success = true
		result.Status = StatusSucceeded
	}
	p.state[ref] = result
	return result, nil
}

func (p *SandboxProvider) GetPaymentStatus(ctx context.Context, paymentReference string) (*ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.state[paymentReference]; ok {
		return r, nil
	}
	return &ChargeResult{PaymentReference: paymentReference, Status: StatusFailed}, nil
}

func (p *SandboxProvider) CancelPayment(ctx context.Context, paymentReference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.state[paymentReference]; ok {
		r.Status = StatusCancelled
		r.Success = false
	}
	return nil
}

func (p *SandboxProvider) RefundPayment(ctx context.Context, paymentReference string, amountCents *int64, reason string) (*ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &ChargeResult{PaymentReference: paymentReference, Success: true, Status: StatusRefunded}
	p.state[paymentReference] = r
	return r, nil
}
