package main

import (
	"context"
	"errors"
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
	"eventscout/internal/infra/queue"
	"eventscout/internal/usecase/events"
)

// Воркер читает задачи обогащения из RabbitMQ и прогоняет их через
// сервис каталога. Неудачная задача возвращается в очередь.
func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	rabbit, err := queue.NewRabbitEnrichQueue(cfg.RabbitURL, cfg.Queues.Enrich)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: очередь недоступна")
	}
	defer rabbit.Close()

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	var eventEnricher domain.Enricher
	if cfg.LLM.APIKey != "" {
		eventEnricher = enricher.NewLLM(llmClient, cfg.LLM.Timeout)
	} else {
		logger.Warn().Msg("worker: ключ LLM не задан, работает эвристический обогатитель")
		eventEnricher = enricher.NewSimple()
	}

	eventsSvc := events.NewService(repo.NewEventRepo(pool),
		extractor.NewLLM(llmClient, cfg.LLM.Timeout), eventEnricher, enricher.Fallback(), logger)

	metrics.StartServer(ctx, logger, ":9090")
	logger.Info().Str("queue", cfg.Queues.Enrich).Msg("worker: запущен")

	for {
		job, ack, err := rabbit.Receive(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("worker: остановка")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("worker: получение задачи не удалось")
			return
		}

		stats, err := eventsSvc.EnrichBatch(ctx, job.EventIDs)
		if err != nil {
			logger.Error().Err(err).Str("cause", string(job.Cause)).Msg("worker: задача провалена")
			if ackErr := ack(false); ackErr != nil {
				logger.Error().Err(ackErr).Msg("worker: nack не отправлен")
			}
			continue
		}

		logger.Info().
			Str("cause", string(job.Cause)).
			Int("processed", stats.Processed).
			Int("fallbacks", stats.Fallbacks).
			Msg("worker: задача обработана")
		if ackErr := ack(true); ackErr != nil {
			logger.Error().Err(ackErr).Msg("worker: ack не отправлен")
		}
	}
}
