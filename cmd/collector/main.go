package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"eventscout/internal/adapters/enricher"
	"eventscout/internal/adapters/extractor"
	"eventscout/internal/adapters/repo"
	"eventscout/internal/domain"
	"eventscout/internal/infra/config"
	"eventscout/internal/infra/db"
	"eventscout/internal/infra/llm"
	loginfra "eventscout/internal/infra/log"
	"eventscout/internal/infra/metrics"
	"eventscout/internal/usecase/events"
)

// Коллектор выполняет один полный проход: сбор с источников,
// обогащение и зачистка прошедших событий. Подходит для cron.
func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("collector: схема не создана")
	}

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	var eventEnricher domain.Enricher
	if cfg.LLM.APIKey != "" {
		eventEnricher = enricher.NewLLM(llmClient, cfg.LLM.Timeout)
	} else {
		eventEnricher = enricher.NewSimple()
	}

	eventsSvc := events.NewService(repo.NewEventRepo(pool),
		extractor.NewLLM(llmClient, cfg.LLM.Timeout), eventEnricher, enricher.Fallback(), logger)

	sources := events.ParseSources(cfg.Collector.Sources)
	collectStats, err := eventsSvc.Collect(ctx, sources)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: сбор прерван")
	}

	enrichStats, err := eventsSvc.EnrichBatch(ctx, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("collector: обогащение прервано")
	}

	deleted, err := eventsSvc.CleanupPast()
	if err != nil {
		logger.Error().Err(err).Msg("collector: зачистка не удалась")
	}

	logger.Info().
		Int("collected", collectStats.Collected).
		Int("failed_sources", collectStats.Failed).
		Int("enriched", enrichStats.Processed).
		Int("fallbacks", enrichStats.Fallbacks).
		Int("deleted_past", deleted).
		Msg("collector: проход завершён")
}
