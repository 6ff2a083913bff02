package payment

import "context"

type Repository interface {
	Create(ctx context.Context, a *Attempt) error
	Update(ctx context.Context, a *Attempt) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Attempt, error)
	CountByInvoice(ctx context.Context, invoiceID string) (int, error)
}
