package repo

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// RecommendationRepo — Postgres-реализация domain.RecommendationRepo.
// Журнал только пополняется, записи никогда не изменяются.
type RecommendationRepo struct {
	pool *pgxpool.Pool
}

var _ domain.RecommendationRepo = (*RecommendationRepo)(nil)

// NewRecommendationRepo создаёт репозиторий рекомендаций.
func NewRecommendationRepo(pool *pgxpool.Pool) *RecommendationRepo {
	return &RecommendationRepo{pool: pool}
}

// SaveRecommendation добавляет запись в журнал.
func (r *RecommendationRepo) SaveRecommendation(rec domain.Recommendation) (domain.Recommendation, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO recommendations (user_id, interests, sentiment, events_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.UserID, rec.Interests, rec.Sentiment, string(rec.EventsJSON),
	).Scan(&rec.ID)
	metrics.ObserveNetworkRequest("postgres", "save_recommendation", "recommendations", start, err)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("сохранение рекомендации: %w", err)
	}
	return rec, nil
}

// ListRecommendations возвращает последние записи пользователя, новые первыми.
func (r *RecommendationRepo) ListRecommendations(userID int64, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(interests, ''), COALESCE(sentiment, ''), COALESCE(events_json, '')
		FROM recommendations WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	metrics.ObserveNetworkRequest("postgres", "list_recommendations", "recommendations", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка рекомендаций: %w", err)
	}
	defer rows.Close()

	var recs []domain.Recommendation
	for rows.Next() {
		var (
			rec    domain.Recommendation
			events string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Interests, &rec.Sentiment, &events); err != nil {
			return nil, fmt.Errorf("чтение рекомендации: %w", err)
		}
		rec.EventsJSON = []byte(events)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход рекомендаций: %w", err)
	}
	return recs, nil
}
