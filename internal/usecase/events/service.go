package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// Source описывает внешний источник событий.
type Source struct {
	URL  string
	Name string
}

// ParseSources разбирает список источников в формате "url|Name,url|Name".
func ParseSources(raw []string) []Source {
	sources := make([]Source, 0, len(raw))
	for _, item := range raw {
		parts := strings.SplitN(strings.TrimSpace(item), "|", 2)
		if parts[0] == "" {
			continue
		}
		source := Source{URL: parts[0], Name: parts[0]}
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			source.Name = strings.TrimSpace(parts[1])
		}
		sources = append(sources, source)
	}
	return sources
}

// CollectStats — итог одного прохода сборщика.
type CollectStats struct {
	Sources   int `json:"sources"`
	Collected int `json:"collected"`
	Failed    int `json:"failed_sources"`
}

// EnrichStats — итог пакетного обогащения.
type EnrichStats struct {
	Processed int `json:"processed"`
	Fallbacks int `json:"fallbacks"`
}

// Service управляет каталогом событий: сбор, обогащение, зачистка.
type Service struct {
	repo      domain.EventRepo
	extractor domain.Extractor
	enricher  domain.Enricher
	fallback  domain.Enrichment
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис каталога. fallback применяется, когда
// обогатитель вернул ошибку.
func NewService(repo domain.EventRepo, extractor domain.Extractor, enricher domain.Enricher, fallback domain.Enrichment, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		enricher:  enricher,
		fallback:  fallback,
		log:       log.With().Str("component", "events").Logger(),
		now:       time.Now,
	}
}

// Create добавляет событие в каталог.
func (s *Service) Create(event domain.Event) (domain.Event, error) {
	if strings.TrimSpace(event.Name) == "" {
		return domain.Event{}, fmt.Errorf("пустое название события")
	}
	return s.repo.CreateEvent(event)
}

// Get возвращает событие по идентификатору.
func (s *Service) Get(id int64) (domain.Event, error) {
	return s.repo.GetEvent(id)
}

// List возвращает весь каталог.
func (s *Service) List() ([]domain.Event, error) {
	return s.repo.ListEvents()
}

// UnprocessedCount возвращает число событий без обогащения.
func (s *Service) UnprocessedCount() (int, error) {
	events, err := s.repo.ListUnenriched()
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Collect последовательно обходит источники. Сбой одного источника
// логируется и не прерывает обход остальных.
func (s *Service) Collect(ctx context.Context, sources []Source) (CollectStats, error) {
	stats := CollectStats{Sources: len(sources)}
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		extracted, err := s.extractor.Extract(ctx, source.URL, source.Name)
		if err != nil {
			metrics.CollectorErrors.Inc()
			stats.Failed++
			s.log.Warn().Err(err).Str("source", source.Name).Msg("источник пропущен")
			continue
		}
		for _, event := range extracted {
			if _, err := s.repo.CreateEvent(event); err != nil {
				s.log.Warn().Err(err).Str("event", event.Name).Msg("событие не сохранено")
				continue
			}
			stats.Collected++
		}
		s.log.Info().Str("source", source.Name).Int("events", len(extracted)).Msg("источник обработан")
	}
	return stats, nil
}

// EnrichBatch последовательно обогащает события. При ошибке провайдера
// событию записывается запасное обогащение, пакет продолжается.
func (s *Service) EnrichBatch(ctx context.Context, eventIDs []int64) (EnrichStats, error) {
	started := s.now()
	defer func() {
		metrics.EnrichBatchSeconds.Observe(time.Since(started).Seconds())
	}()

	var batch []domain.Event
	if len(eventIDs) == 0 {
		unenriched, err := s.repo.ListUnenriched()
		if err != nil {
			return EnrichStats{}, fmt.Errorf("выборка необогащённых: %w", err)
		}
		batch = unenriched
	} else {
		for _, id := range eventIDs {
			event, err := s.repo.GetEvent(id)
			if err != nil {
				s.log.Warn().Err(err).Int64("event_id", id).Msg("событие пропущено")
				continue
			}
			batch = append(batch, event)
		}
	}

	var stats EnrichStats
	for _, event := range batch {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		enrichment, err := s.enricher.Enrich(ctx, event.Description, event.Location)
		if err != nil {
			s.log.Warn().Err(err).Int64("event_id", event.ID).Msg("обогащение не удалось, пишем запасное")
			enrichment = s.fallback
			stats.Fallbacks++
		}
		if err := s.repo.SaveEnrichment(event.ID, enrichment); err != nil {
			s.log.Warn().Err(err).Int64("event_id", event.ID).Msg("обогащение не сохранено")
			continue
		}
		stats.Processed++
	}
	return stats, nil
}

// CleanupPast удаляет прошедшие события и возвращает их число.
func (s *Service) CleanupPast() (int, error) {
	deleted, err := s.repo.DeletePastEvents(s.now())
	if err != nil {
		return 0, fmt.Errorf("зачистка каталога: %w", err)
	}
	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("прошедшие события удалены")
	}
	return deleted, nil
}
