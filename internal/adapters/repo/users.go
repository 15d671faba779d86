package repo

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

const userColumns = `id, email, COALESCE(name, ''), COALESCE(preferences, ''), role, tier,
	subscription_status, subscription_start_date, subscription_end_date, recommendation_count`

// UserRepo — Postgres-реализация domain.UserRepo.
type UserRepo struct {
	pool *pgxpool.Pool
}

var _ domain.UserRepo = (*UserRepo)(nil)

// NewUserRepo создаёт репозиторий пользователей.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row rowScanner) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Preferences, &user.Role, &user.Tier,
		&user.SubscriptionStatus, &user.SubscriptionStartDate, &user.SubscriptionEndDate,
		&user.RecommendationCount)
	return user, err
}

// UpsertByEmail находит или создаёт пользователя по email из профиля Google.
// Тариф уже существующего пользователя не меняется. Второе возвращаемое
// значение сообщает, был ли пользователь создан.
func (r *UserRepo) UpsertByEmail(profile domain.GoogleProfile, initialTier domain.Tier) (domain.User, bool, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, tier, subscription_status, subscription_start_date)
		VALUES ($1, $2, $3, 'active', now())
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING `+userColumns+`, (xmax = 0) AS inserted`,
		profile.Email, profile.Name, initialTier)

	var (
		user     domain.User
		inserted bool
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Preferences, &user.Role, &user.Tier,
		&user.SubscriptionStatus, &user.SubscriptionStartDate, &user.SubscriptionEndDate,
		&user.RecommendationCount, &inserted)
	metrics.ObserveNetworkRequest("postgres", "upsert_user", "users", start, err)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("сохранение пользователя: %w", err)
	}
	return user, inserted, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepo) GetByID(id int64) (domain.User, error) {
	return r.get(`SELECT `+userColumns+` FROM users WHERE id = $1`, "get_user_by_id", id)
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepo) GetByEmail(email string) (domain.User, error) {
	return r.get(`SELECT `+userColumns+` FROM users WHERE email = $1`, "get_user_by_email", email)
}

func (r *UserRepo) get(query, op string, arg any) (domain.User, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	metrics.ObserveNetworkRequest("postgres", op, "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("получение пользователя: %w", err)
	}
	return user, nil
}

// UpdatePreferences сохраняет интересы пользователя.
func (r *UserRepo) UpdatePreferences(userID int64, preferences string) error {
	return r.exec(`UPDATE users SET preferences = $2 WHERE id = $1`,
		"update_preferences", userID, preferences)
}

// UpdateTier переводит пользователя на новый тариф.
func (r *UserRepo) UpdateTier(userID int64, tier domain.Tier) error {
	return r.exec(`UPDATE users SET tier = $2, subscription_start_date = now() WHERE id = $1`,
		"update_tier", userID, tier)
}

// IncrementRecommendationCount увеличивает счётчик выданных рекомендаций.
func (r *UserRepo) IncrementRecommendationCount(userID int64) error {
	return r.exec(`UPDATE users SET recommendation_count = recommendation_count + 1 WHERE id = $1`,
		"increment_recommendation_count", userID)
}

func (r *UserRepo) exec(query, op string, args ...any) error {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", op, "users", start, err)
	if err != nil {
		return fmt.Errorf("обновление пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
