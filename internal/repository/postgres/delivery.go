package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/delivery"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type deliveryRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDeliveryRepository(db *postgres.DB, logger *logger.Logger) delivery.Repository {
	return &deliveryRepository{db: db, logger: logger}
}

func (r *deliveryRepository) CreateIfAbsent(ctx context.Context, d *delivery.Instance) (*delivery.Instance, error) {
	query := `
		INSERT INTO deliveries (
			id, subscription_id, invoice_id, cycle_key, delivery_status, snapshot,
			external_order_ref, cancellation_reason, canceled_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :invoice_id, :cycle_key, :delivery_status, :snapshot,
			:external_order_ref, :cancellation_reason, :canceled_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (tenant_id, subscription_id, cycle_key) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}
	return r.GetByCycleKey(ctx, d.SubscriptionID, d.CycleKey)
}

func (r *deliveryRepository) Get(ctx context.Context, id string) (*delivery.Instance, error) {
	query := `SELECT * FROM deliveries WHERE id = :id AND tenant_id = :tenant_id`
	return r.queryOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *deliveryRepository) GetByCycleKey(ctx context.Context, subscriptionID, cycleKey string) (*delivery.Instance, error) {
	query := `
		SELECT * FROM deliveries
		WHERE subscription_id = :subscription_id AND cycle_key = :cycle_key AND tenant_id = :tenant_id
	`
	return r.queryOne(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"cycle_key":       cycleKey,
		"tenant_id":       types.GetTenantID(ctx),
	})
}

func (r *deliveryRepository) queryOne(ctx context.Context, query string, args map[string]interface{}) (*delivery.Instance, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("delivery not found").Mark(ierr.ErrNotFound)
	}

	var d delivery.Instance
	if err := rows.StructScan(&d); err != nil {
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}

func (r *deliveryRepository) Update(ctx context.Context, d *delivery.Instance) error {
	d.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE deliveries SET
			delivery_status = :delivery_status,
			external_order_ref = :external_order_ref,
			cancellation_reason = :cancellation_reason,
			canceled_at = :canceled_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	return nil
}
