package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/outbox"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
)

type outboxRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOutboxRepository(db *postgres.DB, logger *logger.Logger) outbox.Repository {
	return &outboxRepository{db: db, logger: logger}
}

func (r *outboxRepository) Emit(ctx context.Context, e *outbox.Event) error {
	query := `
		INSERT INTO outbox_events (
			id, tenant_id, event_type, event_key, event_payload, created_at, published_at
		) VALUES (
			:id, :tenant_id, :event_type, :event_key, :event_payload, :created_at, :published_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to emit outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) Get(ctx context.Context, id string) (*outbox.Event, error) {
	query := `SELECT * FROM outbox_events WHERE id = :id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("outbox event not found").Mark(ierr.ErrNotFound)
	}

	var e outbox.Event
	if err := rows.StructScan(&e); err != nil {
		return nil, fmt.Errorf("failed to scan outbox event: %w", err)
	}
	return &e, nil
}

func (r *outboxRepository) ListUnpublished(ctx context.Context, limit int) ([]*outbox.Event, error) {
	query := `
		SELECT * FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT :limit
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished outbox events: %w", err)
	}
	defer rows.Close()

	var events []*outbox.Event
	for rows.Next() {
		var e outbox.Event
		if err := rows.StructScan(&e); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, eventID string, now time.Time) error {
	query := `UPDATE outbox_events SET published_at = :now WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{"now": now, "id": eventID})
	if err != nil {
		return fmt.Errorf("failed to mark outbox event published: %w", err)
	}
	return nil
}
