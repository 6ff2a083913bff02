package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/payment"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, a *payment.Attempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, invoice_id, amount_cents, currency, attempt_status,
			payment_method_ref, external_payment_id, failure_code, failure_reason,
			attempt_number, attempted_at, completed_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :amount_cents, :currency, :attempt_status,
			:payment_method_ref, :external_payment_id, :failure_code, :failure_reason,
			:attempt_number, :attempted_at, :completed_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, a *payment.Attempt) error {
	a.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE payment_attempts SET
			attempt_status = :attempt_status,
			external_payment_id = :external_payment_id,
			failure_code = :failure_code,
			failure_reason = :failure_reason,
			completed_at = :completed_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id
	`
	_, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to update payment attempt: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Attempt, error) {
	query := `SELECT * FROM payment_attempts WHERE invoice_id = $1 ORDER BY attempt_number ASC`
	var attempts []*payment.Attempt
	if err := r.db.SelectContext(ctx, &attempts, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	return attempts, nil
}

func (r *paymentRepository) CountByInvoice(ctx context.Context, invoiceID string) (int, error) {
	query := `SELECT COUNT(*) FROM payment_attempts WHERE invoice_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, invoiceID); err != nil {
		return 0, fmt.Errorf("failed to count payment attempts: %w", err)
	}
	return count, nil
}
