package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/customer"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, email, external_id, attributes,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :email, :external_id, :attributes,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	query := `SELECT * FROM customers WHERE id = :id AND tenant_id = :tenant_id`
	return r.queryOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *customerRepository) GetByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	query := `SELECT * FROM customers WHERE external_id = :external_id AND tenant_id = :tenant_id`
	return r.queryOne(ctx, query, map[string]interface{}{
		"external_id": externalID,
		"tenant_id":   types.GetTenantID(ctx),
	})
}

func (r *customerRepository) queryOne(ctx context.Context, query string, args map[string]interface{}) (*customer.Customer, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("customer not found")
	}

	var c customer.Customer
	if err := rows.StructScan(&c); err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE customers SET
			email = :email,
			attributes = :attributes,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}
