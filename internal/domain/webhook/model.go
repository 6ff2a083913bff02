package webhook

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Endpoint is a tenant's registered webhook target. SubscribedEventTypes
// is the filter the fan-out loop applies before inserting a delivery row.
type Endpoint struct {
	types.BaseModel
	ID                     string                      `db:"id" json:"id"`
	URL                    string                      `db:"url" json:"url"`
	Secret                 string                      `db:"secret" json:"-"`
	SubscribedEventTypes   types.StringSlice           `db:"subscribed_event_types" json:"subscribed_event_types"`
}

// Subscribes reports whether this endpoint wants deliveries for the given
// event type. An empty subscription list means all events.
func (e *Endpoint) Subscribes(eventType types.OutboxEventType) bool {
	if len(e.SubscribedEventTypes) == 0 {
		return true
	}
	for _, t := range e.SubscribedEventTypes {
		if t == string(eventType) {
			return true
		}
	}
	return false
}

// Delivery is one attempt (and its retry history) of relaying an outbox
// event to an endpoint.
type Delivery struct {
	ID                 string                       `db:"id" json:"id"`
	TenantID           string                       `db:"tenant_id" json:"tenant_id"`
	EndpointID         string                       `db:"endpoint_id" json:"endpoint_id"`
	OutboxEventID      string                       `db:"outbox_event_id" json:"outbox_event_id"`
	DeliveryStatus     types.WebhookDeliveryStatus  `db:"delivery_status" json:"delivery_status"`
	AttemptCount       int                          `db:"attempt_count" json:"attempt_count"`
	MaxAttempts        int                          `db:"max_attempts" json:"max_attempts"`
	NextAttemptAt      time.Time                    `db:"next_attempt_at" json:"next_attempt_at"`
	LastResponseStatus int                          `db:"last_response_status" json:"last_response_status,omitempty"`
	LastResponseBody   string                       `db:"last_response_body" json:"last_response_body,omitempty"`
	LastError          string                       `db:"last_error" json:"last_error,omitempty"`
	DeliveredAt        *time.Time                   `db:"delivered_at" json:"delivered_at,omitempty"`
}
