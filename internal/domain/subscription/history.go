package subscription

import (
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// HistoryAction names a recorded lifecycle transition or modification.
type HistoryAction string

const (
	HistoryActionCreated  HistoryAction = "created"
	HistoryActionPaused   HistoryAction = "paused"
	HistoryActionResumed  HistoryAction = "resumed"
	HistoryActionCanceled HistoryAction = "canceled"
	HistoryActionExpired  HistoryAction = "expired"
	HistoryActionModified HistoryAction = "modified"
)

// History is an append-only audit row. Every lifecycle transition and
// every modification (plan change, address, items) writes one of these;
// nothing here is ever updated or deleted.
type History struct {
	ID               string        `db:"id" json:"id"`
	SubscriptionID   string        `db:"subscription_id" json:"subscription_id"`
	Action           HistoryAction `db:"action" json:"action"`
	PerformedBy      string        `db:"performed_by" json:"performed_by"`
	PerformedByType  string        `db:"performed_by_type" json:"performed_by_type"`
	Metadata         types.JSONMap `db:"metadata" json:"metadata,omitempty"`
	PerformedAt      time.Time     `db:"performed_at" json:"performed_at"`
}
