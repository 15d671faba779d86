package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"eventscout/internal/adapters/sessionstore"
	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

type stubEventRepo struct {
	events map[int64]domain.Event
}

func newStubEventRepo(events ...domain.Event) *stubEventRepo {
	repo := &stubEventRepo{events: map[int64]domain.Event{}}
	for _, event := range events {
		repo.events[event.ID] = event
	}
	return repo
}

func (s *stubEventRepo) CreateEvent(event domain.Event) (domain.Event, error) {
	s.events[event.ID] = event
	return event, nil
}

func (s *stubEventRepo) GetEvent(id int64) (domain.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return event, nil
}

func (s *stubEventRepo) ListEvents() ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event)
	}
	return out, nil
}

func (s *stubEventRepo) ListUpcomingClassified(time.Time) ([]domain.Event, error) { return nil, nil }
func (s *stubEventRepo) ListUnenriched() ([]domain.Event, error)                  { return nil, nil }
func (s *stubEventRepo) SaveEnrichment(int64, domain.Enrichment) error            { return nil }
func (s *stubEventRepo) DeletePastEvents(time.Time) (int, error)                  { return 0, nil }

func (s *stubEventRepo) IncrementCounter(eventID int64, interaction domain.InteractionType) (domain.Event, error) {
	event, ok := s.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	if interaction == domain.InteractionView {
		event.Views++
	} else {
		event.Clicks++
	}
	s.events[eventID] = event
	return event, nil
}

func newTestService(repo *stubEventRepo) *Service {
	return NewService(sessionstore.NewMemory(), repo, zerolog.Nop())
}

func TestStartSessionAssignsID(t *testing.T) {
	svc := newTestService(newStubEventRepo())
	session, err := svc.StartSession(7, map[string]any{"source": "web"})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if session.ID == "" {
		t.Fatal("пустой идентификатор сессии")
	}
	if session.UserID != 7 {
		t.Fatalf("user_id = %d", session.UserID)
	}
}

func TestTrackInteractionIncrementsCounters(t *testing.T) {
	repo := newStubEventRepo(domain.Event{ID: 1, Name: "Concert"})
	svc := newTestService(repo)
	session, _ := svc.StartSession(7, nil)

	event, err := svc.TrackInteraction(session.ID, domain.Interaction{EventID: 1, Type: domain.InteractionView})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if event.Views != 1 {
		t.Fatalf("views = %d", event.Views)
	}

	event, err = svc.TrackInteraction(session.ID, domain.Interaction{EventID: 1, Type: domain.InteractionClick})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if event.Clicks != 1 {
		t.Fatalf("clicks = %d", event.Clicks)
	}

	snap, err := svc.SessionSummary(session.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if snap.TotalInteractions != 2 || snap.EventsViewed != 1 || snap.EventsClicked != 1 {
		t.Fatalf("срез сессии = %+v", snap)
	}
}

func TestTrackInteractionWithoutSessionStillCounts(t *testing.T) {
	repo := newStubEventRepo(domain.Event{ID: 1})
	svc := newTestService(repo)

	event, err := svc.TrackInteraction("no-such-session", domain.Interaction{EventID: 1, Type: domain.InteractionView})
	if err != nil {
		t.Fatalf("счётчик должен обновляться без сессии: %v", err)
	}
	if event.Views != 1 {
		t.Fatalf("views = %d", event.Views)
	}
}

func TestTrackInteractionUnknownEvent(t *testing.T) {
	svc := newTestService(newStubEventRepo())
	_, err := svc.TrackInteraction("", domain.Interaction{EventID: 99, Type: domain.InteractionView})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

func TestTrackInteractionInvalidType(t *testing.T) {
	svc := newTestService(newStubEventRepo(domain.Event{ID: 1}))
	_, err := svc.TrackInteraction("", domain.Interaction{EventID: 1, Type: "teleport"})
	if !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("ожидался ErrInvalidInteraction, получено %v", err)
	}
}

func TestEndSessionAggregates(t *testing.T) {
	repo := newStubEventRepo(domain.Event{ID: 1}, domain.Event{ID: 2})
	svc := newTestService(repo)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, _ := svc.StartSession(7, nil)
	svc.now = func() time.Time { return base.Add(90 * time.Second) }

	mustTrack := func(eventID int64, kind domain.InteractionType) {
		t.Helper()
		if _, err := svc.TrackInteraction(session.ID, domain.Interaction{EventID: eventID, Type: kind}); err != nil {
			t.Fatalf("track: %v", err)
		}
	}
	mustTrack(1, domain.InteractionView)
	mustTrack(1, domain.InteractionView)
	mustTrack(1, domain.InteractionClick)
	mustTrack(2, domain.InteractionBooking)

	aggregate, err := svc.EndSession(session.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if aggregate.Duration != 90 {
		t.Fatalf("duration = %v", aggregate.Duration)
	}
	if len(aggregate.ProcessedInteractions) != 2 {
		t.Fatalf("агрегатов = %d", len(aggregate.ProcessedInteractions))
	}
	first := aggregate.ProcessedInteractions[0]
	if first.EventID != 1 || first.ViewCount != 2 || first.ClickCount != 1 || first.EngagementScore != 3 {
		t.Fatalf("агрегат события 1 = %+v", first)
	}
	second := aggregate.ProcessedInteractions[1]
	if second.EventID != 2 || second.ClickCount != 1 {
		t.Fatalf("агрегат события 2 = %+v", second)
	}

	if _, err := svc.SessionSummary(session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("сессия должна быть удалена, получено %v", err)
	}
}

func TestEndEmptySession(t *testing.T) {
	svc := newTestService(newStubEventRepo())
	session, _ := svc.StartSession(7, nil)

	aggregate, err := svc.EndSession(session.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(aggregate.ProcessedInteractions) != 0 {
		t.Fatalf("пустая сессия дала агрегаты: %+v", aggregate.ProcessedInteractions)
	}
}

func TestEndUnknownSession(t *testing.T) {
	svc := newTestService(newStubEventRepo())
	if _, err := svc.EndSession("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

func TestOrganizerDashboard(t *testing.T) {
	repo := newStubEventRepo(
		domain.Event{ID: 1, Name: "Big", EventType: "music", Views: 60, Clicks: 10},
		domain.Event{ID: 2, Name: "Mid", EventType: "tech", Views: 10, Clicks: 5},
		domain.Event{ID: 3, Name: "Small", EventType: "music", Views: 1},
	)
	svc := newTestService(repo)

	dashboard, err := svc.OrganizerDashboard()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if dashboard.TotalEvents != 3 || dashboard.TotalViews != 71 || dashboard.TotalClicks != 15 {
		t.Fatalf("итоги = %+v", dashboard)
	}
	if dashboard.EventsByType["music"] != 2 || dashboard.EventsByType["tech"] != 1 {
		t.Fatalf("по типам = %+v", dashboard.EventsByType)
	}
	if dashboard.EngagementBuckets["high"] != 1 || dashboard.EngagementBuckets["medium"] != 1 || dashboard.EngagementBuckets["low"] != 1 {
		t.Fatalf("корзины = %+v", dashboard.EngagementBuckets)
	}
	if len(dashboard.TopEvents) != 3 || dashboard.TopEvents[0].EventID != 1 {
		t.Fatalf("топ = %+v", dashboard.TopEvents)
	}
}

func TestUserEngagementHistory(t *testing.T) {
	repo := newStubEventRepo(domain.Event{ID: 1})
	svc := newTestService(repo)

	mine, _ := svc.StartSession(7, nil)
	other, _ := svc.StartSession(8, nil)
	if _, err := svc.TrackInteraction(mine.ID, domain.Interaction{EventID: 1, Type: domain.InteractionView, UserID: 7}); err != nil {
		t.Fatalf("track: %v", err)
	}
	if _, err := svc.TrackInteraction(other.ID, domain.Interaction{EventID: 1, Type: domain.InteractionView, UserID: 8}); err != nil {
		t.Fatalf("track: %v", err)
	}

	history, err := svc.UserEngagementHistory(7)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(history) != 1 || history[0].EventID != 1 {
		t.Fatalf("история = %+v", history)
	}
}

func TestEvictStale(t *testing.T) {
	svc := newTestService(newStubEventRepo())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.Add(-48 * time.Hour) }
	old, _ := svc.StartSession(1, nil)
	svc.now = func() time.Time { return base }
	fresh, _ := svc.StartSession(2, nil)

	evicted, err := svc.EvictStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("удалено %d сессий", evicted)
	}
	if _, err := svc.SessionSummary(old.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("старая сессия должна быть удалена")
	}
	if _, err := svc.SessionSummary(fresh.ID); err != nil {
		t.Fatalf("свежая сессия должна жить: %v", err)
	}
}

func TestEvictStaleResyncsGauge(t *testing.T) {
	store := sessionstore.NewMemory()
	svc := NewService(store, newStubEventRepo(), zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.Add(-48 * time.Hour) }
	svc.StartSession(1, nil)
	svc.now = func() time.Time { return base }
	svc.StartSession(2, nil)

	// Имитация истечения по TTL: сессия пропадает из хранилища,
	// минуя декремент датчика.
	sessions, err := store.List()
	if err != nil {
		t.Fatalf("выборка сессий: %v", err)
	}
	for _, session := range sessions {
		if session.UserID == 2 {
			store.Delete(session.ID)
		}
	}

	if _, err := svc.EvictStale(24 * time.Hour); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 0 {
		t.Fatalf("датчик живых сессий = %v", got)
	}
}
