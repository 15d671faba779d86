package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
)

func TestDefaults(t *testing.T) {
	var cfg AppConfig
	if err := envconfig.Process("eventscout_test_unset", &cfg); err != nil {
		t.Fatalf("не удалось разобрать конфиг: %v", err)
	}
	if cfg.Collector.StartupLockTTL != 24*time.Hour {
		t.Fatalf("TTL стартового замка = %v", cfg.Collector.StartupLockTTL)
	}
	if !cfg.Collector.OnStartup {
		t.Fatal("сбор при старте должен быть включён по умолчанию")
	}
	if len(cfg.Collector.Sources) != 3 {
		t.Fatalf("источников по умолчанию = %d", len(cfg.Collector.Sources))
	}
	if cfg.Queues.Enrich != "enrich_jobs" {
		t.Fatalf("очередь обогащения = %q", cfg.Queues.Enrich)
	}
	if cfg.Sessions.MaxAge != 24*time.Hour {
		t.Fatalf("срок сессии = %v", cfg.Sessions.MaxAge)
	}
	if cfg.JWT.TTL != 24*time.Hour {
		t.Fatalf("срок токена = %v", cfg.JWT.TTL)
	}
}
