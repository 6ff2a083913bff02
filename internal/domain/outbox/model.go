package outbox

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Event is a domain event co-committed with the state change that
// produced it. EventKey is advisory only - unlike task_key it carries no
// uniqueness constraint, since outbox emission is meant to be at-least-once
// and the webhook relay's own delivery table is what de-duplicates
// downstream fan-out.
type Event struct {
	ID            string             `db:"id" json:"id"`
	TenantID      string             `db:"tenant_id" json:"tenant_id"`
	EventType     types.OutboxEventType `db:"event_type" json:"event_type"`
	EventKey      string             `db:"event_key" json:"event_key,omitempty"`
	EventPayload  types.JSONMap      `db:"event_payload" json:"event_payload"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	PublishedAt   *time.Time         `db:"published_at" json:"published_at,omitempty"`
}
