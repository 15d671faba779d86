package domain

import (
	"context"
	"time"
)

// EventRepo управляет событиями.
type EventRepo interface {
	CreateEvent(event Event) (Event, error)
	GetEvent(id int64) (Event, error)
	ListEvents() ([]Event, error)
	ListUpcomingClassified(now time.Time) ([]Event, error)
	ListUnenriched() ([]Event, error)
	SaveEnrichment(eventID int64, enrichment Enrichment) error
	IncrementCounter(eventID int64, interaction InteractionType) (Event, error)
	DeletePastEvents(now time.Time) (int, error)
}

// UserRepo управляет пользователями.
type UserRepo interface {
	UpsertByEmail(profile GoogleProfile, initialTier Tier) (User, bool, error)
	GetByID(id int64) (User, error)
	GetByEmail(email string) (User, error)
	UpdatePreferences(userID int64, preferences string) error
	UpdateTier(userID int64, tier Tier) error
	IncrementRecommendationCount(userID int64) error
}

// RecommendationRepo хранит журнал рекомендаций. Только добавление.
type RecommendationRepo interface {
	SaveRecommendation(rec Recommendation) (Recommendation, error)
	ListRecommendations(userID int64, limit int) ([]Recommendation, error)
}

// SubscriptionRepo хранит журнал смены тарифов. Только добавление.
type SubscriptionRepo interface {
	SaveSubscription(sub UserSubscription) (UserSubscription, error)
	ListSubscriptions(userID int64) ([]UserSubscription, error)
}

// Enricher строит NLP-обогащение по описанию события.
type Enricher interface {
	Enrich(ctx context.Context, description, location string) (Enrichment, error)
}

// Generator придумывает события-кандидаты под интересы пользователя.
type Generator interface {
	Generate(ctx context.Context, interests []string, sentiment string, limit int) ([]RecommendedEvent, error)
}

// Extractor выгружает списки событий с внешнего источника.
type Extractor interface {
	Extract(ctx context.Context, sourceURL, sourceName string) ([]Event, error)
}

// Geocoder превращает название места в координаты.
type Geocoder interface {
	Geocode(ctx context.Context, query, country string) (Coordinates, error)
	Directions(ctx context.Context, from, to, mode string) (Route, error)
}

// SessionStore хранит живые аналитические сессии.
// Реализация обязана переживать конкурентный доступ; долговечность не требуется.
type SessionStore interface {
	Save(session Session) error
	Get(id string) (Session, bool, error)
	Delete(id string) error
	List() ([]Session, error)
	EvictOlderThan(cutoff time.Time) (int, error)
}

// EnrichQueue — очередь задач на пакетное обогащение.
type EnrichQueue interface {
	Enqueue(ctx context.Context, job EnrichJob) error
	Receive(ctx context.Context) (EnrichJob, AckFunc, error)
}

// AckFunc подтверждает обработку задачи или просит повторную доставку.
type AckFunc func(success bool) error

// Cache используется для простых TTL-замков и значений.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
