package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/subscription"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/postgres"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription, items []*subscription.Item) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO subscriptions (
				id, customer_id, plan_id, sub_status, plan_snapshot,
				current_period_start, current_period_end, next_renewal_at,
				trial_start, trial_end, payment_method_ref, shipping_address,
				cancel_at_period_end, canceled_at, cancellation_reason, version,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :customer_id, :plan_id, :sub_status, :plan_snapshot,
				:current_period_start, :current_period_end, :next_renewal_at,
				:trial_start, :trial_end, :payment_method_ref, :shipping_address,
				:cancel_at_period_end, :canceled_at, :cancellation_reason, :version,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)
		`
		if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		itemQuery := `
			INSERT INTO subscription_items (
				id, subscription_id, plan_id, quantity, unit_price_cents, currency, item_config
			) VALUES (
				:id, :subscription_id, :plan_id, :quantity, :unit_price_cents, :currency, :item_config
			)
		`
		for _, item := range items {
			item.SubscriptionID = sub.ID
			if _, err := r.db.NamedExecContext(ctx, itemQuery, item); err != nil {
				return fmt.Errorf("failed to create subscription item: %w", err)
			}
		}

		history := &subscription.History{
			ID:              types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory),
			SubscriptionID:  sub.ID,
			Action:          subscription.HistoryActionCreated,
			PerformedBy:     types.GetUserID(ctx),
			PerformedByType: "user",
			PerformedAt:     time.Now().UTC(),
		}
		historyQuery := `
			INSERT INTO subscription_history (
				id, subscription_id, action, performed_by, performed_by_type, metadata, performed_at
			) VALUES (
				:id, :subscription_id, :action, :performed_by, :performed_by_type, :metadata, :performed_at
			)
		`
		if _, err := r.db.NamedExecContext(ctx, historyQuery, history); err != nil {
			return fmt.Errorf("failed to record subscription history: %w", err)
		}
		return nil
	})
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = :id AND tenant_id = :tenant_id`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("subscription not found")
	}

	var sub subscription.Subscription
	if err := rows.StructScan(&sub); err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE subscriptions SET
			sub_status = :sub_status,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			next_renewal_at = :next_renewal_at,
			trial_start = :trial_start,
			trial_end = :trial_end,
			payment_method_ref = :payment_method_ref,
			shipping_address = :shipping_address,
			cancel_at_period_end = :cancel_at_period_end,
			canceled_at = :canceled_at,
			cancellation_reason = :cancellation_reason,
			version = version + 1,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND version = :version
	`
	res, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s was modified concurrently", sub.ID)
	}
	sub.Version++
	return nil
}

func (r *subscriptionRepository) ListItems(ctx context.Context, subscriptionID string) ([]*subscription.Item, error) {
	query := `SELECT * FROM subscription_items WHERE subscription_id = $1`
	var items []*subscription.Item
	if err := r.db.SelectContext(ctx, &items, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("failed to list subscription items: %w", err)
	}
	return items, nil
}

func (r *subscriptionRepository) ListDueForRenewal(ctx context.Context, now time.Time, afterID string, limit int) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE sub_status = :sub_status
			AND next_renewal_at <= :now
			AND id > :after_id
		ORDER BY id ASC
		LIMIT :limit
	`
	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"sub_status": types.SubscriptionStatusActive,
		"now":        now,
		"after_id":   afterID,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions due for renewal: %w", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.StructScan(&sub); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}

func (r *subscriptionRepository) AppendHistory(ctx context.Context, h *subscription.History) error {
	if h.ID == "" {
		h.ID = types.GenerateIDWithPrefix(types.IDPrefixSubscriptionHistory)
	}
	if h.PerformedAt.IsZero() {
		h.PerformedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO subscription_history (
			id, subscription_id, action, performed_by, performed_by_type, metadata, performed_at
		) VALUES (
			:id, :subscription_id, :action, :performed_by, :performed_by_type, :metadata, :performed_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, h)
	if err != nil {
		return fmt.Errorf("failed to append subscription history: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) ListHistory(ctx context.Context, subscriptionID string) ([]*subscription.History, error) {
	query := `SELECT * FROM subscription_history WHERE subscription_id = $1 ORDER BY performed_at DESC`
	var history []*subscription.History
	if err := r.db.SelectContext(ctx, &history, query, subscriptionID); err != nil {
		return nil, fmt.Errorf("failed to list subscription history: %w", err)
	}
	return history, nil
}
