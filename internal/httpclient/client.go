package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
)

// Request represents an HTTP request
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// Client interface for making HTTP requests. Provider adapters (payment,
// commerce) and the webhook relay all send through this interface rather
// than holding their own *http.Client, so every outbound call gets the
// same retry and timeout behavior.
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// RetryingClient wraps retryablehttp.Client, which retries connection
// errors and 5xx/429 responses with exponential backoff before the caller
// ever sees them. Callers still see at most one outcome per Send call -
// the retries this client performs are transport-level, distinct from the
// task-level retries the dispatcher schedules via the task queue.
type RetryingClient struct {
	client *retryablehttp.Client
}

// NewRetryingClient creates a client suitable for calling out to payment
// and commerce providers, and for posting signed webhook deliveries.
func NewRetryingClient(cfg ClientConfig, log *logger.Logger) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if log != nil {
		rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				log.Debugw("retrying outbound http request", "url", req.URL.String(), "attempt", attempt)
			}
		}
	}
	return &RetryingClient{client: rc}
}

// Send makes an HTTP request and returns the response.
func (c *RetryingClient) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to build outbound request").
			Mark(ierr.ErrValidation)
	}

	if req.Body != nil {
		httpReq.ContentLength = int64(len(req.Body))
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("outbound request failed after retries").
			Mark(ierr.ErrTransient)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to read response body").
			Mark(ierr.ErrTransient)
	}

	headers := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	if resp.StatusCode >= 400 {
		return nil, NewError(resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    headers,
	}, nil
}
