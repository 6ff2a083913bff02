package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/webhook"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type webhookEndpointRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEndpointRepository(db *postgres.DB, logger *logger.Logger) webhook.EndpointRepository {
	return &webhookEndpointRepository{db: db, logger: logger}
}

func (r *webhookEndpointRepository) Create(ctx context.Context, e *webhook.Endpoint) error {
	query := `
		INSERT INTO webhook_endpoints (
			id, url, secret, subscribed_event_types,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :url, :secret, :subscribed_event_types,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to create webhook endpoint: %w", err)
	}
	return nil
}

func (r *webhookEndpointRepository) Get(ctx context.Context, id string) (*webhook.Endpoint, error) {
	query := `SELECT * FROM webhook_endpoints WHERE id = :id AND tenant_id = :tenant_id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("webhook endpoint not found").Mark(ierr.ErrNotFound)
	}

	var e webhook.Endpoint
	if err := rows.StructScan(&e); err != nil {
		return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
	}
	return &e, nil
}

func (r *webhookEndpointRepository) List(ctx context.Context) ([]*webhook.Endpoint, error) {
	query := `SELECT * FROM webhook_endpoints WHERE tenant_id = $1 ORDER BY created_at DESC`
	var endpoints []*webhook.Endpoint
	if err := r.db.SelectContext(ctx, &endpoints, query, types.GetTenantID(ctx)); err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	return endpoints, nil
}

func (r *webhookEndpointRepository) Update(ctx context.Context, e *webhook.Endpoint) error {
	e.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE webhook_endpoints SET
			url = :url,
			secret = :secret,
			subscribed_event_types = :subscribed_event_types,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to update webhook endpoint: %w", err)
	}
	return nil
}

func (r *webhookEndpointRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE webhook_endpoints SET status = :status, updated_at = :now WHERE id = :id AND tenant_id = :tenant_id`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"status":    types.StatusDeleted,
		"now":       time.Now().UTC(),
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook endpoint: %w", err)
	}
	return nil
}

func (r *webhookEndpointRepository) ListActiveSubscribedTo(ctx context.Context, tenantID string, eventType types.OutboxEventType) ([]*webhook.Endpoint, error) {
	query := `
		SELECT * FROM webhook_endpoints
		WHERE tenant_id = :tenant_id AND status = :status
			AND (subscribed_event_types = '[]' OR subscribed_event_types @> :event_type_json)
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id":       tenantID,
		"status":          types.StatusActive,
		"event_type_json": fmt.Sprintf("[%q]", string(eventType)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed webhook endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*webhook.Endpoint
	for rows.Next() {
		var e webhook.Endpoint
		if err := rows.StructScan(&e); err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, &e)
	}
	return endpoints, nil
}

type webhookDeliveryRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookDeliveryRepository(db *postgres.DB, logger *logger.Logger) webhook.DeliveryRepository {
	return &webhookDeliveryRepository{db: db, logger: logger}
}

// Create is idempotent on (endpoint_id, outbox_event_id): re-running
// fan-out for an event already fanned out to an endpoint (e.g. after a
// crash between inserting deliveries and marking the event published)
// leaves the existing delivery row untouched rather than duplicating it.
func (r *webhookDeliveryRepository) Create(ctx context.Context, d *webhook.Delivery) error {
	query := `
		INSERT INTO webhook_deliveries (
			id, tenant_id, endpoint_id, outbox_event_id, delivery_status,
			attempt_count, max_attempts, next_attempt_at, last_response_status,
			last_response_body, last_error, delivered_at
		) VALUES (
			:id, :tenant_id, :endpoint_id, :outbox_event_id, :delivery_status,
			:attempt_count, :max_attempts, :next_attempt_at, :last_response_status,
			:last_response_body, :last_error, :delivered_at
		)
		ON CONFLICT (endpoint_id, outbox_event_id) DO NOTHING
	`
	_, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}
	return nil
}

func (r *webhookDeliveryRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*webhook.Delivery, error) {
	query := `
		SELECT * FROM webhook_deliveries
		WHERE delivery_status = :status AND next_attempt_at <= :now AND attempt_count < max_attempts
		ORDER BY next_attempt_at ASC
		LIMIT :limit
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"status": types.WebhookDeliveryStatusPending,
		"now":    now,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list due webhook deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*webhook.Delivery
	for rows.Next() {
		var d webhook.Delivery
		if err := rows.StructScan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan webhook delivery: %w", err)
		}
		deliveries = append(deliveries, &d)
	}
	return deliveries, nil
}

func (r *webhookDeliveryRepository) Update(ctx context.Context, d *webhook.Delivery) error {
	query := `
		UPDATE webhook_deliveries SET
			delivery_status = :delivery_status,
			attempt_count = :attempt_count,
			next_attempt_at = :next_attempt_at,
			last_response_status = :last_response_status,
			last_response_body = :last_response_body,
			last_error = :last_error,
			delivered_at = :delivered_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return fmt.Errorf("failed to update webhook delivery: %w", err)
	}
	return nil
}
