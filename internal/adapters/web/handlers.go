// Package web собирает HTTP-обработчики сервиса.
package web

import (
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"eventscout/internal/adapters/googleauth"
	"eventscout/internal/adapters/locator"
	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
	"eventscout/internal/usecase/analytics"
	"eventscout/internal/usecase/events"
	"eventscout/internal/usecase/recommend"
)

// Handlers держит зависимости HTTP-слоя.
type Handlers struct {
	events    *events.Service
	job       *events.JobRunner
	analytics *analytics.Service
	recommend *recommend.Service
	locator   *locator.Service
	users     domain.UserRepo
	oauth     *googleauth.Client
	queue     domain.EnrichQueue
	jwtSecret string
	jwtTTL    time.Duration
	log       zerolog.Logger
}

// NewHandlers создаёт обработчики. queue может быть nil: тогда пакетное
// обогащение выполняется синхронно.
func NewHandlers(
	eventsSvc *events.Service,
	job *events.JobRunner,
	analyticsSvc *analytics.Service,
	recommendSvc *recommend.Service,
	locatorSvc *locator.Service,
	users domain.UserRepo,
	oauth *googleauth.Client,
	queue domain.EnrichQueue,
	jwtSecret string,
	jwtTTL time.Duration,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		events:    eventsSvc,
		job:       job,
		analytics: analyticsSvc,
		recommend: recommendSvc,
		locator:   locatorSvc,
		users:     users,
		oauth:     oauth,
		queue:     queue,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		log:       log.With().Str("component", "web").Logger(),
	}
}

// Register вешает маршруты на роутер.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.authLogin)
		r.Get("/callback", h.authCallback)
		r.Post("/select-tier", h.selectTier)
		r.With(httpx.AuthMiddleware(h.jwtSecret)).Get("/me", h.me)
	})

	r.Route("/api", func(r chi.Router) {
		// Публичная витрина.
		r.Get("/events", h.listEvents)
		r.Get("/events/trending", h.trendingPublic)
		r.Get("/events/map", h.eventsMap)
		r.Get("/events/{id}", h.getEvent)

		r.Group(func(r chi.Router) {
			r.Use(httpx.AuthMiddleware(h.jwtSecret))

			r.Post("/events", h.createEvent)
			r.Post("/events/{id}/track", h.trackInteraction)
			r.Get("/events/{id}/analytics", h.eventAnalytics)
			r.Post("/events/{id}/locate", h.locateEvent)
			r.Get("/events/{id}/openlayers", h.openLayersLocation)
			r.Post("/events/enhance", h.batchEnhance)
			r.Get("/events/unprocessed", h.unprocessedEvents)
			r.Post("/events/process-locations", h.processLocations)
			r.Get("/events/discover", h.discoverEvents)

			r.Get("/directions", h.directions)
			r.Get("/directions/summary", h.directionsSummary)

			r.Post("/sessions/start", h.startSession)
			r.Post("/sessions/{id}/end", h.endSession)
			r.Get("/sessions/{id}/summary", h.sessionSummary)

			r.Post("/recommendations", h.personalized)
			r.Get("/recommendations/trending", h.trending)
			r.Get("/users/{id}/recommendations", h.personalizedByUser)
			r.Get("/users/{id}/recommendations/history", h.recommendationHistory)
			r.Get("/users/{id}/preferences", h.getPreferences)
			r.Put("/users/{id}/preferences", h.updatePreferences)
			r.Get("/users/{id}/engagement", h.userEngagement)
			r.Post("/users/upgrade", h.upgrade)

			r.Route("/collect", func(r chi.Router) {
				r.Get("/status", h.collectStatus)
				r.With(httpx.RequireRole(domain.RoleOrganizer)).Post("/start", h.collectStart)
				r.With(httpx.RequireRole(domain.RoleOrganizer)).Post("/stop", h.collectStop)
			})

			r.Group(func(r chi.Router) {
				r.Use(httpx.RequireRole(domain.RoleOrganizer))
				r.Get("/sessions", h.activeSessions)
				r.Get("/analytics/dashboard", h.organizerDashboard)
			})
		})
	})
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
