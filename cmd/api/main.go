package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"eventscout/internal/adapters/enricher"
	"eventscout/internal/adapters/extractor"
	"eventscout/internal/adapters/generator"
	"eventscout/internal/adapters/googleauth"
	"eventscout/internal/adapters/locator"
	"eventscout/internal/adapters/repo"
	"eventscout/internal/adapters/sessionstore"
	"eventscout/internal/adapters/web"
	"eventscout/internal/domain"
	"eventscout/internal/infra/cache"
	"eventscout/internal/infra/config"
	"eventscout/internal/infra/db"
	"eventscout/internal/infra/googlemaps"
	httpinfra "eventscout/internal/infra/http"
	"eventscout/internal/infra/llm"
	loginfra "eventscout/internal/infra/log"
	"eventscout/internal/infra/metrics"
	"eventscout/internal/infra/queue"
	"eventscout/internal/usecase/analytics"
	"eventscout/internal/usecase/events"
	"eventscout/internal/usecase/recommend"
)

func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("api: схема не создана")
	}

	eventRepo := repo.NewEventRepo(pool)
	userRepo := repo.NewUserRepo(pool)
	recRepo := repo.NewRecommendationRepo(pool)
	subRepo := repo.NewSubscriptionRepo(pool)

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	mapsClient := googlemaps.NewClient(cfg.Maps.APIKey, "", 10*time.Second)
	oauthClient := googleauth.NewClient(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURL)

	var eventEnricher domain.Enricher
	if cfg.LLM.APIKey != "" {
		eventEnricher = enricher.NewLLM(llmClient, cfg.LLM.Timeout)
	} else {
		logger.Warn().Msg("api: ключ LLM не задан, работает эвристический обогатитель")
		eventEnricher = enricher.NewSimple()
	}

	var sessions domain.SessionStore
	var startupGuard domain.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sessions = sessionstore.NewRedis(redisClient, cfg.Sessions.MaxAge)
		startupGuard = cache.NewRedis(redisClient)
	} else {
		sessions = sessionstore.NewMemory()
	}

	var enrichQueue domain.EnrichQueue
	if cfg.RabbitURL != "" {
		rabbit, err := queue.NewRabbitEnrichQueue(cfg.RabbitURL, cfg.Queues.Enrich)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: очередь обогащения недоступна")
		}
		defer rabbit.Close()
		enrichQueue = rabbit
	}

	center := domain.MapCenter{Lat: cfg.Maps.CenterLat, Lon: cfg.Maps.CenterLon}
	locatorSvc := locator.NewService(mapsClient, llmClient, cfg.Maps.Country, center, logger)
	eventsSvc := events.NewService(eventRepo, extractor.NewLLM(llmClient, cfg.LLM.Timeout), eventEnricher, enricher.Fallback(), logger)
	analyticsSvc := analytics.NewService(sessions, eventRepo, logger)
	recommendSvc := recommend.NewService(eventRepo, userRepo, recRepo, subRepo,
		generator.NewLLM(llmClient, "Sri Lanka", cfg.LLM.Timeout), logger)

	sources := events.ParseSources(cfg.Collector.Sources)
	job := events.NewJobRunner(eventsSvc, sources, logger)
	if cfg.Collector.OnStartup {
		startCollection := func() error {
			job.Start(ctx)
			return nil
		}
		if startupGuard != nil {
			// Замок в Redis переживает рестарты: стартовый сбор идёт не чаще
			// раза в сутки и не дублируется между инстансами.
			if err := startupGuard.Once("collect:startup", cfg.Collector.StartupLockTTL, startCollection); err != nil {
				logger.Warn().Err(err).Msg("api: стартовый сбор не запущен")
			}
		} else {
			_ = startCollection()
		}
	}

	go sessionJanitor(ctx, analyticsSvc, cfg.Sessions.MaxAge, logger)

	metrics.StartServer(ctx, logger, ":9090")

	srv := httpinfra.NewServer(logger)
	handlers := web.NewHandlers(eventsSvc, job, analyticsSvc, recommendSvc, locatorSvc,
		userRepo, oauthClient, enrichQueue, cfg.JWT.Secret, cfg.JWT.TTL, logger)
	handlers.Register(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr(cfg.Port))
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("api: получен сигнал остановки")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: сервер упал")
		}
	}

	job.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: сервер не остановился корректно")
	}
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}

// sessionJanitor периодически выселяет устаревшие сессии, ограничивая
// память хранилища.
func sessionJanitor(ctx context.Context, svc *analytics.Service, maxAge time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.EvictStale(maxAge); err != nil {
				logger.Warn().Err(err).Msg("api: зачистка сессий не удалась")
			}
		}
	}
}
