package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
// Все внешние провайдеры настраиваются здесь и передаются компонентам явно.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Colombo"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	LLM struct {
		APIKey  string        `envconfig:"LLM_API_KEY"`
		BaseURL string        `envconfig:"LLM_BASE_URL"`
		Model   string        `envconfig:"LLM_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Maps struct {
		APIKey    string  `envconfig:"GOOGLE_MAPS_API_KEY"`
		Country   string  `envconfig:"MAPS_COUNTRY" default:"lk"`
		CenterLat float64 `envconfig:"MAPS_CENTER_LAT" default:"7.8731"`
		CenterLon float64 `envconfig:"MAPS_CENTER_LON" default:"80.7718"`
	} `envconfig:""`

	OAuth struct {
		ClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
		ClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
		RedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`
	} `envconfig:""`

	JWT struct {
		Secret string        `envconfig:"JWT_SECRET"`
		TTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`
	} `envconfig:""`

	Sessions struct {
		MaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"24h"`
	} `envconfig:""`

	Collector struct {
		Sources   []string `envconfig:"COLLECTOR_SOURCES" default:"https://www.eventbrite.com/d/sri-lanka/all-events/|Eventbrite,https://www.meetup.com/cities/lk/colombo/|Meetup,https://allevents.in/colombo|AllEvents"`
		OnStartup bool     `envconfig:"COLLECTOR_ON_STARTUP" default:"true"`
		// Замок в Redis держится сутки: стартовый сбор идёт не чаще раза в день.
		StartupLockTTL time.Duration `envconfig:"COLLECTOR_STARTUP_LOCK_TTL" default:"24h"`
	} `envconfig:""`

	Queues struct {
		Enrich string `envconfig:"ENRICH_QUEUE_KEY" default:"enrich_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
