package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/plan"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id, name, base_price_cents, currency, billing_interval,
			billing_interval_count, trial_period_days, plan_type, lifecycle_status,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :base_price_cents, :currency, :billing_interval,
			:billing_interval_count, :trial_period_days, :plan_type, :lifecycle_status,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	query := `SELECT * FROM plans WHERE id = :id AND tenant_id = :tenant_id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("plan not found")
	}

	var p plan.Plan
	if err := rows.StructScan(&p); err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	return &p, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE plans SET
			name = :name,
			base_price_cents = :base_price_cents,
			currency = :currency,
			billing_interval = :billing_interval,
			billing_interval_count = :billing_interval_count,
			trial_period_days = :trial_period_days,
			plan_type = :plan_type,
			lifecycle_status = :lifecycle_status,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}
