package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/invoice"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice, lines []*invoice.Line) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO invoices (
				id, subscription_id, customer_id, invoice_number, period_start, period_end,
				subtotal_cents, tax_cents, total_cents, currency, invoice_status, due_date, paid_at,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :subscription_id, :customer_id, :invoice_number, :period_start, :period_end,
				:subtotal_cents, :tax_cents, :total_cents, :currency, :invoice_status, :due_date, :paid_at,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)
		`
		if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
			return ierr.WithError(err).WithMessage("failed to create invoice").Mark(ierr.ErrConflict)
		}

		lineQuery := `
			INSERT INTO invoice_lines (
				id, invoice_id, description, quantity, unit_price_cents, total_cents, currency, period_start, period_end
			) VALUES (
				:id, :invoice_id, :description, :quantity, :unit_price_cents, :total_cents, :currency, :period_start, :period_end
			)
		`
		for _, line := range lines {
			line.InvoiceID = inv.ID
			if _, err := r.db.NamedExecContext(ctx, lineQuery, line); err != nil {
				return fmt.Errorf("failed to create invoice line: %w", err)
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = :id AND tenant_id = :tenant_id`
	return r.queryOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *invoiceRepository) GetByCycle(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE subscription_id = :subscription_id
			AND period_start = :period_start
			AND period_end = :period_end
			AND tenant_id = :tenant_id
	`
	return r.queryOne(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"period_start":    periodStart,
		"period_end":      periodEnd,
		"tenant_id":       types.GetTenantID(ctx),
	})
}

func (r *invoiceRepository) queryOne(ctx context.Context, query string, args map[string]interface{}) (*invoice.Invoice, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.WithError(sql.ErrNoRows).WithMessage("invoice not found").Mark(ierr.ErrNotFound)
	}

	var inv invoice.Invoice
	if err := rows.StructScan(&inv); err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE invoices SET
			invoice_status = :invoice_status,
			paid_at = :paid_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) ListLines(ctx context.Context, invoiceID string) ([]*invoice.Line, error) {
	query := `SELECT * FROM invoice_lines WHERE invoice_id = $1`
	var lines []*invoice.Line
	if err := r.db.SelectContext(ctx, &lines, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	return lines, nil
}
