package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

const redisKeyPrefix = "analytics:session:"

// Redis хранит сессии во внешнем Redis — вариант для multi-instance развёртывания.
type Redis struct {
	client *redis.Client
	maxAge time.Duration
}

var _ domain.SessionStore = (*Redis)(nil)

// NewRedis создаёт хранилище. maxAge задаёт TTL ключей.
func NewRedis(client *redis.Client, maxAge time.Duration) *Redis {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Redis{client: client, maxAge: maxAge}
}

func (r *Redis) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

// Save сохраняет сессию как JSON-блоб с TTL.
func (r *Redis) Save(session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ctx, cancel := r.opCtx()
	defer cancel()
	start := time.Now()
	err = r.client.Set(ctx, redisKeyPrefix+session.ID, payload, r.maxAge).Err()
	metrics.ObserveNetworkRequest("redis", "session_save", "sessions", start, err)
	return err
}

// Get возвращает сессию по идентификатору.
func (r *Redis) Get(id string) (domain.Session, bool, error) {
	ctx, cancel := r.opCtx()
	defer cancel()
	start := time.Now()
	payload, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	metrics.ObserveNetworkRequest("redis", "session_get", "sessions", start, err)
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

// Delete удаляет сессию.
func (r *Redis) Delete(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	start := time.Now()
	err := r.client.Del(ctx, redisKeyPrefix+id).Err()
	metrics.ObserveNetworkRequest("redis", "session_delete", "sessions", start, err)
	return err
}

// List возвращает все живые сессии через SCAN.
func (r *Redis) List() ([]domain.Session, error) {
	ctx, cancel := r.opCtx()
	defer cancel()
	var sessions []domain.Session
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var session domain.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// EvictOlderThan удаляет сессии старше cutoff. TTL делает это и сам,
// но явная зачистка держит сводку живых сессий честной.
func (r *Redis) EvictOlderThan(cutoff time.Time) (int, error) {
	sessions, err := r.List()
	if err != nil {
		return 0, err
	}
	evicted := 0
	for _, session := range sessions {
		if session.StartTime.Before(cutoff) {
			if err := r.Delete(session.ID); err != nil {
				return evicted, err
			}
			evicted++
		}
	}
	return evicted, nil
}
