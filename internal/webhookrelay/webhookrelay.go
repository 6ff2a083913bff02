// Package webhookrelay is the webhook relay (C10): two independent
// polling loops, fan-out (outbox -> per-endpoint delivery rows) and
// dispatch (delivery rows -> signed HTTP POST), each a single short-lived
// pass per call.
package webhookrelay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/outbox"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/webhook"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/httpclient"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	FanOutBatchSize  int
	DispatchBatch    int
	DefaultMaxAttempts int
	BackoffBase      time.Duration
}

type Relay struct {
	db          *postgres.DB
	outboxStore outbox.Repository
	endpoints   webhook.EndpointRepository
	deliveries  webhook.DeliveryRepository
	client      httpclient.Client
	log         *logger.Logger
	cfg         Config
}

func New(db *postgres.DB, outboxStore outbox.Repository, endpoints webhook.EndpointRepository, deliveries webhook.DeliveryRepository, client httpclient.Client, log *logger.Logger, cfg Config) *Relay {
	if cfg.FanOutBatchSize <= 0 {
		cfg.FanOutBatchSize = 100
	}
	if cfg.DispatchBatch <= 0 {
		cfg.DispatchBatch = 100
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = 8
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	return &Relay{db: db, outboxStore: outboxStore, endpoints: endpoints, deliveries: deliveries, client: client, log: log, cfg: cfg}
}

// FanOut reads a batch of unpublished outbox events and, for each, inserts
// one PENDING webhook_delivery per subscribed active endpoint. An event
// with zero matching endpoints is still marked published - there is
// nothing further for the relay to do with it.
func (r *Relay) FanOut(ctx context.Context, now time.Time) (processed int, err error) {
	events, err := r.outboxStore.ListUnpublished(ctx, r.cfg.FanOutBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpublished outbox events: %w", err)
	}

	for _, e := range events {
		tenantCtx := types.WithTenantID(ctx, e.TenantID)
		endpoints, err := r.endpoints.ListActiveSubscribedTo(tenantCtx, e.TenantID, e.EventType)
		if err != nil {
			r.log.Errorw("webhookrelay: failed to list subscribed endpoints", "event_id", e.ID, "error", err)
			continue
		}

		err = r.db.WithTx(tenantCtx, func(tenantCtx context.Context) error {
			for _, ep := range endpoints {
				d := &webhook.Delivery{
					ID:             types.GenerateIDWithPrefix(types.IDPrefixWebhookDelivery),
					TenantID:       e.TenantID,
					EndpointID:     ep.ID,
					OutboxEventID:  e.ID,
					DeliveryStatus: types.WebhookDeliveryStatusPending,
					MaxAttempts:    r.cfg.DefaultMaxAttempts,
					NextAttemptAt:  now,
				}
				if err := r.deliveries.Create(tenantCtx, d); err != nil {
					return fmt.Errorf("create delivery row for endpoint %s: %w", ep.ID, err)
				}
			}
			return r.outboxStore.MarkPublished(tenantCtx, e.ID, now)
		})
		if err != nil {
			r.log.Errorw("webhookrelay: failed to fan out event", "event_id", e.ID, "error", err)
			continue
		}
		processed++
	}

	return processed, nil
}

// payload is the exact JSON body signed and sent to the endpoint.
type payload struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Data      types.JSONMap   `json:"data"`
}

// Dispatch is the dispatch loop: it loads each due delivery's outbox
// event and endpoint, builds the signed request, and interprets the
// response per §4.10.
func (r *Relay) Dispatch(ctx context.Context, now time.Time) (processed int, err error) {
	due, err := r.deliveries.ListDue(ctx, now, r.cfg.DispatchBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list due webhook deliveries: %w", err)
	}

	for _, d := range due {
		tenantCtx := types.WithTenantID(ctx, d.TenantID)

		ep, err := r.endpoints.Get(tenantCtx, d.EndpointID)
		if err != nil {
			r.log.Errorw("webhookrelay: failed to load endpoint", "delivery_id", d.ID, "error", err)
			continue
		}
		ev, err := r.outboxStore.Get(tenantCtx, d.OutboxEventID)
		if err != nil {
			r.log.Errorw("webhookrelay: failed to load outbox event", "delivery_id", d.ID, "error", err)
			continue
		}

		r.attempt(tenantCtx, d, ep, ev, now)
		processed++
	}

	return processed, nil
}

func (r *Relay) attempt(ctx context.Context, d *webhook.Delivery, ep *webhook.Endpoint, ev *outbox.Event, now time.Time) {
	body, err := jsonAPI.Marshal(payload{
		EventID:   ev.ID,
		EventType: string(ev.EventType),
		Timestamp: ev.CreatedAt,
		Data:      ev.EventPayload,
	})
	if err != nil {
		r.log.Errorw("webhookrelay: failed to marshal delivery payload", "delivery_id", d.ID, "error", err)
		return
	}

	sig := sign(ep.Secret, body)
	resp, sendErr := r.client.Send(ctx, &httpclient.Request{
		Method: "POST",
		URL:    ep.URL,
		Body:   body,
		Headers: map[string]string{
			"Content-Type":           "application/json",
			"X-Event-Type":           string(ev.EventType),
			"X-Event-Id":             ev.ID,
			"X-Webhook-Signature":    sig,
		},
	})

	if sendErr == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		deliveredAt := now
		d.DeliveryStatus = types.WebhookDeliveryStatusDelivered
		d.LastResponseStatus = resp.StatusCode
		d.DeliveredAt = &deliveredAt
		if err := r.deliveries.Update(ctx, d); err != nil {
			r.log.Errorw("webhookrelay: failed to mark delivery delivered", "delivery_id", d.ID, "error", err)
		}
		return
	}

	d.AttemptCount++
	if sendErr != nil {
		d.LastError = sendErr.Error()
	} else {
		d.LastError = fmt.Sprintf("endpoint returned non-2xx status %d", resp.StatusCode)
		d.LastResponseStatus = resp.StatusCode
	}
	if httpErr, ok := httpclient.IsHTTPError(sendErr); ok {
		d.LastResponseStatus = httpErr.StatusCode
		d.LastResponseBody = string(httpErr.Response)
	}

	if d.AttemptCount >= d.MaxAttempts {
		d.DeliveryStatus = types.WebhookDeliveryStatusFailed
	} else {
		d.NextAttemptAt = now.Add(backoffDelay(r.cfg.BackoffBase, d.AttemptCount))
	}

	if err := r.deliveries.Update(ctx, d); err != nil {
		r.log.Errorw("webhookrelay: failed to record delivery failure", "delivery_id", d.ID, "error", err)
	}
}

// sign returns the exact header value §4.10 specifies: "sha256=" followed
// by the lowercase hex HMAC-SHA256 of the exact bytes sent, keyed on the
// endpoint's secret.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// backoffDelay implements base * 2^attemptCount, per §4.10.
func backoffDelay(base time.Duration, attemptCount int) time.Duration {
	d := base
	for i := 0; i < attemptCount; i++ {
		d *= 2
	}
	return d
}
