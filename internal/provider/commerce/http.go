package commerce

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/httpclient"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPProvider calls an external commerce/fulfillment service over HTTP
// through the shared retrying client, per the adapter contract of §6.
type HTTPProvider struct {
	baseURL string
	client  httpclient.Client
}

func NewHTTPProvider(baseURL string, client httpclient.Client) *HTTPProvider {
	return &HTTPProvider{baseURL: baseURL, client: client}
}

func (p *HTTPProvider) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	body, err := jsonAPI.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal order request: %v", ierr.ErrValidation, err)
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method: "POST",
		URL:    p.baseURL + "/orders",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var result OrderResult
	if err := jsonAPI.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %v", ierr.ErrTransient, err)
	}
	return &result, nil
}

func (p *HTTPProvider) GetOrderStatus(ctx context.Context, externalRef string) (*OrderResult, error) {
	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method: "GET",
		URL:    fmt.Sprintf("%s/orders/%s", p.baseURL, externalRef),
	})
	if err != nil {
		return nil, err
	}
	var result OrderResult
	if err := jsonAPI.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode order status response: %v", ierr.ErrTransient, err)
	}
	return &result, nil
}

func (p *HTTPProvider) CancelOrder(ctx context.Context, externalRef string) error {
	_, err := p.client.Send(ctx, &httpclient.Request{
		Method: "POST",
		URL:    fmt.Sprintf("%s/orders/%s/cancel", p.baseURL, externalRef),
	})
	return err
}
