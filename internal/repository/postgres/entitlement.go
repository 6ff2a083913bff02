package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/entitlement"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type entitlementRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewEntitlementRepository(db *postgres.DB, logger *logger.Logger) entitlement.Repository {
	return &entitlementRepository{db: db, logger: logger}
}

// Upsert inserts on (tenant_id, customer_id, entitlement_key); a grant
// that lands on an existing key extends valid_until to the later of the
// two rather than shortening an already-further-out expiry.
func (r *entitlementRepository) Upsert(ctx context.Context, e *entitlement.Entitlement) (*entitlement.Entitlement, error) {
	query := `
		INSERT INTO entitlements (
			id, customer_id, subscription_id, entitlement_type, entitlement_key,
			entitlement_status, valid_from, valid_until, payload, external_ref,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :subscription_id, :entitlement_type, :entitlement_key,
			:entitlement_status, :valid_from, :valid_until, :payload, :external_ref,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (tenant_id, customer_id, entitlement_key) DO UPDATE SET
			subscription_id = EXCLUDED.subscription_id,
			entitlement_status = EXCLUDED.entitlement_status,
			valid_until = GREATEST(entitlements.valid_until, EXCLUDED.valid_until),
			payload = EXCLUDED.payload,
			external_ref = EXCLUDED.external_ref,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return nil, fmt.Errorf("failed to upsert entitlement: %w", err)
	}
	return r.Get(ctx, e.CustomerID, e.EntitlementKey)
}

func (r *entitlementRepository) Get(ctx context.Context, customerID, entitlementKey string) (*entitlement.Entitlement, error) {
	query := `
		SELECT * FROM entitlements
		WHERE customer_id = :customer_id AND entitlement_key = :entitlement_key AND tenant_id = :tenant_id
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"customer_id":     customerID,
		"entitlement_key": entitlementKey,
		"tenant_id":       types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("entitlement not found").Mark(ierr.ErrNotFound)
	}

	var e entitlement.Entitlement
	if err := rows.StructScan(&e); err != nil {
		return nil, fmt.Errorf("failed to scan entitlement: %w", err)
	}
	return &e, nil
}

func (r *entitlementRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*entitlement.Entitlement, error) {
	query := `SELECT * FROM entitlements WHERE subscription_id = $1`
	var ents []*entitlement.Entitlement
	if err := r.db.SelectContext(ctx, &ents, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	return ents, nil
}

func (r *entitlementRepository) Revoke(ctx context.Context, customerID, entitlementKey string) error {
	query := `
		UPDATE entitlements SET
			entitlement_status = :entitlement_status,
			updated_at = :updated_at
		WHERE customer_id = :customer_id AND entitlement_key = :entitlement_key AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"entitlement_status": types.EntitlementStatusRevoked,
		"updated_at":         time.Now().UTC(),
		"customer_id":        customerID,
		"entitlement_key":    entitlementKey,
		"tenant_id":          types.GetTenantID(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to revoke entitlement: %w", err)
	}
	return nil
}
