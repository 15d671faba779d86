package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// ErrInvalidInteraction возвращается при неизвестном типе взаимодействия.
var ErrInvalidInteraction = errors.New("неизвестный тип взаимодействия")

// Service ведёт аналитические сессии поверх SessionStore и счётчиков событий.
type Service struct {
	store  domain.SessionStore
	events domain.EventRepo
	log    zerolog.Logger
	now    func() time.Time
}

// NewService создаёт сервис аналитики.
func NewService(store domain.SessionStore, events domain.EventRepo, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		log:    log.With().Str("component", "analytics").Logger(),
		now:    time.Now,
	}
}

// StartSession открывает новую сессию и возвращает её.
func (s *Service) StartSession(userID int64, metadata map[string]any) (domain.Session, error) {
	session := domain.Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		StartTime:     s.now(),
		Interactions:  []domain.Interaction{},
		EventsViewed:  map[int64]bool{},
		EventsClicked: map[int64]bool{},
		Metadata:      metadata,
	}
	if err := s.store.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("сохранение сессии: %w", err)
	}
	metrics.ActiveSessions.Inc()
	return session, nil
}

// TrackInteraction увеличивает долговечный счётчик события и, если сессия
// известна, дописывает взаимодействие в её буфер. Ошибки буфера не фатальны:
// счётчик события обновляется в любом случае.
func (s *Service) TrackInteraction(sessionID string, interaction domain.Interaction) (domain.Event, error) {
	if !interaction.Type.Valid() {
		return domain.Event{}, ErrInvalidInteraction
	}

	event, err := s.events.IncrementCounter(interaction.EventID, interaction.Type)
	if err != nil {
		return domain.Event{}, fmt.Errorf("инкремент счётчика события: %w", err)
	}
	metrics.IncInteraction(string(interaction.Type))

	if sessionID != "" {
		if err := s.appendToSession(sessionID, interaction); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("буфер сессии не обновлён")
		}
	}
	return event, nil
}

func (s *Service) appendToSession(sessionID string, interaction domain.Interaction) error {
	session, ok, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = s.now()
	}
	session.Interactions = append(session.Interactions, interaction)
	if session.EventsViewed == nil {
		session.EventsViewed = map[int64]bool{}
	}
	if session.EventsClicked == nil {
		session.EventsClicked = map[int64]bool{}
	}
	switch interaction.Type {
	case domain.InteractionView:
		session.EventsViewed[interaction.EventID] = true
	case domain.InteractionClick, domain.InteractionBooking:
		session.EventsClicked[interaction.EventID] = true
	}
	return s.store.Save(session)
}

// EndSession закрывает сессию, возвращает агрегат и удаляет её из хранилища.
func (s *Service) EndSession(sessionID string) (domain.SessionAggregate, error) {
	session, ok, err := s.store.Get(sessionID)
	if err != nil {
		return domain.SessionAggregate{}, fmt.Errorf("получение сессии: %w", err)
	}
	if !ok {
		return domain.SessionAggregate{}, domain.ErrNotFound
	}

	aggregate := aggregateSession(session, s.now())

	if err := s.store.Delete(sessionID); err != nil {
		return domain.SessionAggregate{}, fmt.Errorf("удаление сессии: %w", err)
	}
	metrics.ActiveSessions.Dec()
	return aggregate, nil
}

// aggregateSession сворачивает взаимодействия сессии в поминутный агрегат.
func aggregateSession(session domain.Session, endedAt time.Time) domain.SessionAggregate {
	duration := endedAt.Sub(session.StartTime).Seconds()
	if duration < 0 {
		duration = 0
	}

	type counters struct {
		views  int
		clicks int
	}
	byEvent := map[int64]*counters{}
	order := []int64{}
	for _, interaction := range session.Interactions {
		c, ok := byEvent[interaction.EventID]
		if !ok {
			c = &counters{}
			byEvent[interaction.EventID] = c
			order = append(order, interaction.EventID)
		}
		switch interaction.Type {
		case domain.InteractionView:
			c.views++
		case domain.InteractionClick, domain.InteractionBooking:
			c.clicks++
		}
	}

	processed := make([]domain.EventEngagement, 0, len(order))
	for _, eventID := range order {
		c := byEvent[eventID]
		processed = append(processed, domain.EventEngagement{
			EventID:         eventID,
			ViewCount:       c.views,
			ClickCount:      c.clicks,
			EngagementScore: c.views + c.clicks,
			SessionDuration: duration,
		})
	}

	return domain.SessionAggregate{
		SessionID:             session.ID,
		ProcessedInteractions: processed,
		Duration:              duration,
	}
}

// SessionSummary возвращает срез живой сессии.
func (s *Service) SessionSummary(sessionID string) (domain.SessionSnapshot, error) {
	session, ok, err := s.store.Get(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("получение сессии: %w", err)
	}
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrNotFound
	}
	return snapshot(session), nil
}

// ActiveSessions возвращает срезы всех живых сессий.
func (s *Service) ActiveSessions() ([]domain.SessionSnapshot, error) {
	sessions, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("выборка сессий: %w", err)
	}
	snapshots := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, snapshot(session))
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartTime.Before(snapshots[j].StartTime)
	})
	return snapshots, nil
}

func snapshot(session domain.Session) domain.SessionSnapshot {
	return domain.SessionSnapshot{
		SessionID:         session.ID,
		UserID:            session.UserID,
		StartTime:         session.StartTime,
		EventsViewed:      len(session.EventsViewed),
		EventsClicked:     len(session.EventsClicked),
		TotalInteractions: len(session.Interactions),
	}
}

// EvictStale удаляет сессии старше maxAge и возвращает их число.
func (s *Service) EvictStale(maxAge time.Duration) (int, error) {
	evicted, err := s.store.EvictOlderThan(s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("зачистка сессий: %w", err)
	}
	// Датчик пересчитывается от живого списка: TTL в Redis удаляет
	// ключи мимо декремента.
	if sessions, listErr := s.store.List(); listErr == nil {
		metrics.ActiveSessions.Set(float64(len(sessions)))
	}
	if evicted > 0 {
		s.log.Info().Int("evicted", evicted).Msg("устаревшие сессии удалены")
	}
	return evicted, nil
}

// EventStats — долговечные счётчики одного события.
type EventStats struct {
	EventID         int64  `json:"event_id"`
	Name            string `json:"event_name"`
	EventType       string `json:"event_type,omitempty"`
	Views           int    `json:"views"`
	Clicks          int    `json:"clicks"`
	EngagementScore int    `json:"engagement_score"`
}

// EventAnalytics возвращает счётчики одного события.
func (s *Service) EventAnalytics(eventID int64) (EventStats, error) {
	event, err := s.events.GetEvent(eventID)
	if err != nil {
		return EventStats{}, err
	}
	return EventStats{
		EventID:         event.ID,
		Name:            event.Name,
		EventType:       event.EventType,
		Views:           event.Views,
		Clicks:          event.Clicks,
		EngagementScore: event.EngagementScore(),
	}, nil
}

// Dashboard — сводка по каталогу для организатора.
type Dashboard struct {
	TotalEvents       int            `json:"total_events"`
	TotalViews        int            `json:"total_views"`
	TotalClicks       int            `json:"total_clicks"`
	TopEvents         []EventStats   `json:"top_events"`
	EventsByType      map[string]int `json:"events_by_type"`
	EngagementBuckets map[string]int `json:"engagement_buckets"`
	ActiveSessions    int            `json:"active_sessions"`
}

// OrganizerDashboard строит сводку по всему каталогу: итоги, топ-5 по
// вовлечённости, распределение по типам и корзинам вовлечённости.
func (s *Service) OrganizerDashboard() (Dashboard, error) {
	events, err := s.events.ListEvents()
	if err != nil {
		return Dashboard{}, fmt.Errorf("выборка каталога: %w", err)
	}
	sessions, err := s.store.List()
	if err != nil {
		return Dashboard{}, fmt.Errorf("выборка сессий: %w", err)
	}

	dashboard := Dashboard{
		TotalEvents:       len(events),
		EventsByType:      map[string]int{},
		EngagementBuckets: map[string]int{"high": 0, "medium": 0, "low": 0},
		ActiveSessions:    len(sessions),
	}

	stats := make([]EventStats, 0, len(events))
	for _, event := range events {
		dashboard.TotalViews += event.Views
		dashboard.TotalClicks += event.Clicks

		kind := event.EventType
		if kind == "" {
			kind = "unknown"
		}
		dashboard.EventsByType[kind]++

		score := event.EngagementScore()
		switch {
		case score >= 50:
			dashboard.EngagementBuckets["high"]++
		case score >= 10:
			dashboard.EngagementBuckets["medium"]++
		default:
			dashboard.EngagementBuckets["low"]++
		}

		stats = append(stats, EventStats{
			EventID:         event.ID,
			Name:            event.Name,
			EventType:       event.EventType,
			Views:           event.Views,
			Clicks:          event.Clicks,
			EngagementScore: score,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].EngagementScore != stats[j].EngagementScore {
			return stats[i].EngagementScore > stats[j].EngagementScore
		}
		return stats[i].EventID < stats[j].EventID
	})
	if len(stats) > 5 {
		stats = stats[:5]
	}
	dashboard.TopEvents = stats
	return dashboard, nil
}

// UserEngagementHistory возвращает взаимодействия пользователя по живым
// сессиям, новые первыми.
func (s *Service) UserEngagementHistory(userID int64) ([]domain.Interaction, error) {
	sessions, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("выборка сессий: %w", err)
	}
	history := []domain.Interaction{}
	for _, session := range sessions {
		if session.UserID != userID {
			continue
		}
		history = append(history, session.Interactions...)
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	return history, nil
}
