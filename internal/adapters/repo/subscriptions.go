package repo

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// SubscriptionRepo — Postgres-реализация domain.SubscriptionRepo.
type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

var _ domain.SubscriptionRepo = (*SubscriptionRepo)(nil)

// NewSubscriptionRepo создаёт репозиторий журналов тарифа.
func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// SaveSubscription добавляет запись о смене тарифа.
func (r *SubscriptionRepo) SaveSubscription(sub domain.UserSubscription) (domain.UserSubscription, error) {
	ctx, cancel := connCtx()
	defer cancel()

	if sub.StartDate.IsZero() {
		sub.StartDate = time.Now()
	}

	start := time.Now()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, tier, status, start_date, end_date, upgrade_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		sub.UserID, sub.Tier, sub.Status, sub.StartDate, sub.EndDate, sub.UpgradeDate,
	).Scan(&sub.ID, &sub.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "save_subscription", "user_subscriptions", start, err)
	if err != nil {
		return domain.UserSubscription{}, fmt.Errorf("сохранение подписки: %w", err)
	}
	return sub, nil
}

// ListSubscriptions возвращает историю тарифов пользователя, новые первыми.
func (r *SubscriptionRepo) ListSubscriptions(userID int64) ([]domain.UserSubscription, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, tier, status, start_date, end_date, upgrade_date, created_at
		FROM user_subscriptions WHERE user_id = $1 ORDER BY id DESC`, userID)
	metrics.ObserveNetworkRequest("postgres", "list_subscriptions", "user_subscriptions", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка подписок: %w", err)
	}
	defer rows.Close()

	var subs []domain.UserSubscription
	for rows.Next() {
		var sub domain.UserSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Tier, &sub.Status,
			&sub.StartDate, &sub.EndDate, &sub.UpgradeDate, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("чтение подписки: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход подписок: %w", err)
	}
	return subs, nil
}
