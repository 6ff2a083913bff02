package commerce

import (
	"context"
	"sync"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// SandboxProvider fakes order creation for local development and tests.
type SandboxProvider struct {
	mu    sync.Mutex
	state map[string]*OrderResult
}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{state: make(map[string]*OrderResult)}
}

func (p *SandboxProvider) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := types.GenerateIDWithPrefix("sbx_order")
	result := &OrderResult{Success: true, ExternalRef: ref, Status: OrderStatusCreated}
	p.state[ref] = result
	return result, nil
}

func (p *SandboxProvider) GetOrderStatus(ctx context.Context, externalRef string) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.state[externalRef]; ok {
		return r, nil
	}
	return &OrderResult{ExternalRef: externalRef, Status: OrderStatusFailed}, nil
}

func (p *SandboxProvider) CancelOrder(ctx context.Context, externalRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.state[externalRef]; ok {
		r.Status = OrderStatusCanceled
	}
	return nil
}
