// Package outboxsvc is the thin service layer over outbox.Repository (C3):
// one operation, emit, meant to be called inside the same transaction as
// the state change it records.
package outboxsvc

import (
	"context"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/outbox"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type Service struct {
	store outbox.Repository
}

func New(store outbox.Repository) *Service {
	return &Service{store: store}
}

// Emit inserts an outbox row for eventType. eventKey is advisory only -
// it aids debugging and manual replay but carries no uniqueness
// constraint, unlike task_key.
func (s *Service) Emit(ctx context.Context, eventType types.OutboxEventType, eventKey string, payload types.JSONMap) error {
	e := &outbox.Event{
		ID:           types.GenerateIDWithPrefix(types.IDPrefixOutboxEvent),
		TenantID:     types.GetTenantID(ctx),
		EventType:    eventType,
		EventKey:     eventKey,
		EventPayload: payload,
		CreatedAt:    time.Now().UTC(),
	}
	return s.store.Emit(ctx, e)
}
