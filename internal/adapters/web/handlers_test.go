package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"eventscout/internal/adapters/enricher"
	"eventscout/internal/adapters/googleauth"
	"eventscout/internal/adapters/locator"
	"eventscout/internal/adapters/sessionstore"
	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
	"eventscout/internal/usecase/analytics"
	"eventscout/internal/usecase/events"
	"eventscout/internal/usecase/recommend"
)

const testSecret = "test-secret"

type memEventRepo struct {
	nextID int64
	events map[int64]domain.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{nextID: 1, events: map[int64]domain.Event{}}
}

func (m *memEventRepo) CreateEvent(event domain.Event) (domain.Event, error) {
	event.ID = m.nextID
	m.nextID++
	m.events[event.ID] = event
	return event, nil
}

func (m *memEventRepo) GetEvent(id int64) (domain.Event, error) {
	event, ok := m.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return event, nil
}

func (m *memEventRepo) ListEvents() ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(m.events))
	for id := int64(1); id < m.nextID; id++ {
		if event, ok := m.events[id]; ok {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *memEventRepo) ListUpcomingClassified(now time.Time) ([]domain.Event, error) {
	var out []domain.Event
	for _, event := range m.events {
		if event.Date != nil && event.Date.After(now) && event.Enriched() {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *memEventRepo) ListUnenriched() ([]domain.Event, error)       { return nil, nil }
func (m *memEventRepo) SaveEnrichment(int64, domain.Enrichment) error { return nil }

func (m *memEventRepo) IncrementCounter(eventID int64, interaction domain.InteractionType) (domain.Event, error) {
	event, ok := m.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	if interaction == domain.InteractionView {
		event.Views++
	} else {
		event.Clicks++
	}
	m.events[eventID] = event
	return event, nil
}

func (m *memEventRepo) DeletePastEvents(time.Time) (int, error) { return 0, nil }

type memUserRepo struct {
	users map[int64]domain.User
}

func (m *memUserRepo) UpsertByEmail(domain.GoogleProfile, domain.Tier) (domain.User, bool, error) {
	return domain.User{}, false, nil
}
func (m *memUserRepo) GetByID(id int64) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}
func (m *memUserRepo) GetByEmail(string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (m *memUserRepo) UpdatePreferences(id int64, preferences string) error {
	user := m.users[id]
	user.Preferences = preferences
	m.users[id] = user
	return nil
}
func (m *memUserRepo) UpdateTier(id int64, tier domain.Tier) error {
	user := m.users[id]
	user.Tier = tier
	m.users[id] = user
	return nil
}
func (m *memUserRepo) IncrementRecommendationCount(int64) error { return nil }

type memRecRepo struct{}

func (memRecRepo) SaveRecommendation(rec domain.Recommendation) (domain.Recommendation, error) {
	return rec, nil
}
func (memRecRepo) ListRecommendations(int64, int) ([]domain.Recommendation, error) {
	return nil, nil
}

type countingGeocoder struct {
	calls int
}

func (c *countingGeocoder) Geocode(context.Context, string, string) (domain.Coordinates, error) {
	c.calls++
	return domain.Coordinates{Lat: 6.9, Lon: 79.8}, nil
}
func (c *countingGeocoder) Directions(_ context.Context, _, _, mode string) (domain.Route, error) {
	c.calls++
	return domain.Route{Mode: mode, Distance: "5 km", Duration: "10 mins"}, nil
}

type noopExtractor struct{}

func (noopExtractor) Extract(context.Context, string, string) ([]domain.Event, error) {
	return nil, nil
}

type testEnv struct {
	router   chi.Router
	repo     *memEventRepo
	users    *memUserRepo
	geocoder *countingGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemEventRepo()
	users := &memUserRepo{users: map[int64]domain.User{
		1: {ID: 1, Email: "free@example.com", Tier: domain.TierFree, Role: domain.RolePerson},
		2: {ID: 2, Email: "pro@example.com", Tier: domain.TierPro, Role: domain.RolePerson},
		3: {ID: 3, Email: "org@example.com", Tier: domain.TierPro, Role: domain.RoleOrganizer},
	}}
	geocoder := &countingGeocoder{}
	logger := zerolog.Nop()

	eventsSvc := events.NewService(repo, noopExtractor{}, enricher.NewSimple(), enricher.Fallback(), logger)
	job := events.NewJobRunner(eventsSvc, nil, logger)
	analyticsSvc := analytics.NewService(sessionstore.NewMemory(), repo, logger)
	recommendSvc := recommend.NewService(repo, users, memRecRepo{}, nil, nil, logger)
	locatorSvc := locator.NewService(geocoder, nil, "lk",
		domain.MapCenter{Lat: 7.8731, Lon: 80.7718}, logger)

	handlers := NewHandlers(eventsSvc, job, analyticsSvc, recommendSvc, locatorSvc,
		users, googleauth.NewClient("", "", ""), nil, testSecret, time.Hour, logger)

	router := chi.NewRouter()
	handlers.Register(router)
	return &testEnv{router: router, repo: repo, users: users, geocoder: geocoder}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	user := e.users.users[userID]
	token, err := httpx.IssueToken(testSecret, time.Hour, user)
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("ответ не разобран: %v: %s", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/sessions/start", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, ожидался 401", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] == "" {
		t.Fatal("ошибка должна быть структурной")
	}
}

func TestDirectionsForbiddenForFreeBeforeProviderCall(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/directions?from=A&to=B&mode=driving", env.token(t, 1), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("статус = %d, ожидался 403", rec.Code)
	}
	if env.geocoder.calls != 0 {
		t.Fatal("провайдер не должен вызываться для free")
	}
}

func TestDirectionsForPro(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/directions?from=A&to=B&mode=walking", env.token(t, 2), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d: %s", rec.Code, rec.Body.String())
	}
	var route domain.Route
	decode(t, rec, &route)
	if route.Mode != "walking" || route.Distance != "5 km" {
		t.Fatalf("маршрут = %+v", route)
	}
}

func TestTrackInteractionFlow(t *testing.T) {
	env := newTestEnv(t)
	env.repo.CreateEvent(domain.Event{Name: "Concert"})
	token := env.token(t, 1)

	start := env.do(t, http.MethodPost, "/api/sessions/start", token, `{}`)
	if start.Code != http.StatusCreated {
		t.Fatalf("статус = %d: %s", start.Code, start.Body.String())
	}
	var session struct {
		SessionID string `json:"session_id"`
	}
	decode(t, start, &session)

	track := env.do(t, http.MethodPost, "/api/events/1/track", token,
		`{"interaction_type":"view","session_id":"`+session.SessionID+`"}`)
	if track.Code != http.StatusOK {
		t.Fatalf("статус = %d: %s", track.Code, track.Body.String())
	}
	var counts struct {
		Views int `json:"views"`
	}
	decode(t, track, &counts)
	if counts.Views != 1 {
		t.Fatalf("views = %d", counts.Views)
	}

	end := env.do(t, http.MethodPost, "/api/sessions/"+session.SessionID+"/end", token, "")
	if end.Code != http.StatusOK {
		t.Fatalf("статус = %d", end.Code)
	}
	var aggregate domain.SessionAggregate
	decode(t, end, &aggregate)
	if len(aggregate.ProcessedInteractions) != 1 || aggregate.ProcessedInteractions[0].ViewCount != 1 {
		t.Fatalf("агрегат = %+v", aggregate)
	}
}

func TestCreateEventSetsJSONContentType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/events", env.token(t, 1), `{"name":"Concert"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}

	start := env.do(t, http.MethodPost, "/api/sessions/start", env.token(t, 1), `{}`)
	if start.Code != http.StatusCreated {
		t.Fatalf("статус = %d", start.Code)
	}
	if got := start.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestTrackUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/events/99/track", env.token(t, 1),
		`{"interaction_type":"view"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404", rec.Code)
	}
}

func TestDashboardRequiresOrganizer(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/analytics/dashboard", env.token(t, 2), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("статус = %d, ожидался 403", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/analytics/dashboard", env.token(t, 3), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSelectTierValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/select-tier", "", `{"tier":"platinum"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/select-tier", "", `{"tier":"pro"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	var plan struct {
		Cap int `json:"recommendation_cap"`
	}
	decode(t, rec, &plan)
	if plan.Cap != 50 {
		t.Fatalf("лимит = %d", plan.Cap)
	}
}

func TestLocateVirtualEvent(t *testing.T) {
	env := newTestEnv(t)
	env.repo.CreateEvent(domain.Event{Name: "Webinar", Location: "Online via Zoom"})

	rec := env.do(t, http.MethodPost, "/api/events/1/locate", env.token(t, 1), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d: %s", rec.Code, rec.Body.String())
	}
	var data domain.LocationData
	decode(t, rec, &data)
	if !data.IsVirtual || data.Coordinates != nil {
		t.Fatalf("локация = %+v", data)
	}
	if env.geocoder.calls != 0 {
		t.Fatal("геокодер не должен вызываться для виртуального события")
	}
}

func TestUpgradeReissuesToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/upgrade", env.token(t, 1), `{"tier":"pro"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
		User  struct {
			Tier string `json:"tier"`
		} `json:"user"`
	}
	decode(t, rec, &body)
	if body.Token == "" || body.User.Tier != "pro" {
		t.Fatalf("ответ = %+v", body)
	}
}

func TestTrendingPublic(t *testing.T) {
	env := newTestEnv(t)
	env.repo.CreateEvent(domain.Event{Name: "quiet"})
	env.repo.CreateEvent(domain.Event{Name: "hot", Views: 30})

	rec := env.do(t, http.MethodGet, "/api/events/trending?limit=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	var body struct {
		Events []domain.RecommendedEvent `json:"events"`
	}
	decode(t, rec, &body)
	if len(body.Events) != 1 || body.Events[0].Name != "hot" {
		t.Fatalf("выдача = %+v", body.Events)
	}
}
