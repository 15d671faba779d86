package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect создаёт пул подключений к Postgres.
func Connect(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 5
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	event_name VARCHAR(255) NOT NULL,
	location VARCHAR(255),
	date TIMESTAMPTZ,
	description TEXT,
	booking_url VARCHAR(500),
	source VARCHAR(100),
	tags JSONB,
	summary TEXT,
	event_type VARCHAR(100),
	sentiment VARCHAR(50),
	entities JSONB,
	views INT NOT NULL DEFAULT 0,
	clicks INT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email VARCHAR(255) UNIQUE NOT NULL,
	name VARCHAR(255),
	preferences TEXT,
	role VARCHAR(50) NOT NULL DEFAULT 'person',
	tier VARCHAR(20) NOT NULL DEFAULT 'free',
	subscription_status VARCHAR(20) NOT NULL DEFAULT 'active',
	subscription_start_date TIMESTAMPTZ,
	subscription_end_date TIMESTAMPTZ,
	recommendation_count INT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	interests TEXT,
	sentiment VARCHAR(50),
	events_json TEXT
)`,
	`CREATE TABLE IF NOT EXISTS user_subscriptions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	tier VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ,
	upgrade_date TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_events_date ON events (date)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations (user_id)`,
}

// EnsureSchema идемпотентно создаёт таблицы при старте процесса.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("создание схемы: %w", err)
		}
	}
	return nil
}
