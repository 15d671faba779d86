package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
)

type createEventRequest struct {
	Name        string   `json:"event_name"`
	Location    string   `json:"location"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	BookingURL  string   `json:"booking_url"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
}

type eventResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"event_name"`
	Location    string          `json:"location"`
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description"`
	BookingURL  string          `json:"booking_url"`
	Source      string          `json:"source"`
	Tags        []string        `json:"tags"`
	Summary     string          `json:"summary,omitempty"`
	EventType   string          `json:"event_type,omitempty"`
	Sentiment   string          `json:"sentiment,omitempty"`
	Entities    []domain.Entity `json:"entities,omitempty"`
	Views       int             `json:"views"`
	Clicks      int             `json:"clicks"`
	Engagement  int             `json:"engagement_score"`
}

func toEventResponse(event domain.Event) eventResponse {
	date := ""
	if event.Date != nil {
		date = event.Date.Format(time.RFC3339)
	}
	tags := event.Tags
	if tags == nil {
		tags = []string{}
	}
	return eventResponse{
		ID:          event.ID,
		Name:        event.Name,
		Location:    event.Location,
		Date:        date,
		Description: event.Description,
		BookingURL:  event.BookingURL,
		Source:      event.Source,
		Tags:        tags,
		Summary:     event.Summary,
		EventType:   event.EventType,
		Sentiment:   event.Sentiment,
		Entities:    event.Entities,
		Views:       event.Views,
		Clicks:      event.Clicks,
		Engagement:  event.EngagementScore(),
	}
}

func (h *Handlers) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event := domain.Event{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		BookingURL:  req.BookingURL,
		Source:      req.Source,
		Tags:        req.Tags,
	}
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid date format")
			return
		}
		event.Date = &parsed
	}
	created, err := h.events.Create(event)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSONStatus(w, http.StatusCreated, toEventResponse(created))
}

func parseDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handlers) listEvents(w http.ResponseWriter, _ *http.Request) {
	list, err := h.events.List()
	if err != nil {
		h.log.Error().Err(err).Msg("выборка каталога не удалась")
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	out := make([]eventResponse, 0, len(list))
	for _, event := range list {
		out = append(out, toEventResponse(event))
	}
	httpx.WriteJSON(w, map[string]any{"events": out, "count": len(out)})
}

func (h *Handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	event, err := h.events.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	httpx.WriteJSON(w, toEventResponse(event))
}

type trackRequest struct {
	Type      string `json:"interaction_type"`
	SessionID string `json:"session_id"`
}

func (h *Handlers) trackInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, _ := httpx.IdentityFromContext(r.Context())

	event, err := h.analytics.TrackInteraction(req.SessionID, domain.Interaction{
		EventID: id,
		Type:    domain.InteractionType(req.Type),
		UserID:  identity.UserID,
	})
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, map[string]any{
		"event_id": event.ID,
		"views":    event.Views,
		"clicks":   event.Clicks,
	})
}

func (h *Handlers) batchEnhance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventIDs []int64 `json:"event_ids"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if h.queue != nil {
		job := domain.EnrichJob{
			EventIDs:    req.EventIDs,
			RequestedAt: time.Now(),
			Cause:       domain.EnrichCauseManual,
		}
		if err := h.queue.Enqueue(r.Context(), job); err != nil {
			h.log.Error().Err(err).Msg("задача обогащения не поставлена")
			httpx.WriteError(w, http.StatusInternalServerError, "failed to enqueue enrichment")
			return
		}
		httpx.WriteJSONStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	stats, err := h.events.EnrichBatch(r.Context(), req.EventIDs)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "enrichment failed")
		return
	}
	httpx.WriteJSON(w, stats)
}

func (h *Handlers) unprocessedEvents(w http.ResponseWriter, _ *http.Request) {
	count, err := h.events.UnprocessedCount()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	httpx.WriteJSON(w, map[string]int{"unprocessed": count})
}

func (h *Handlers) collectStatus(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, h.job.Status())
}

func (h *Handlers) collectStart(w http.ResponseWriter, _ *http.Request) {
	// Проход живёт дольше запроса, поэтому контекст запроса не подходит.
	if !h.job.Start(context.Background()) {
		httpx.WriteError(w, http.StatusConflict, "collection already running")
		return
	}
	httpx.WriteJSONStatus(w, http.StatusAccepted, h.job.Status())
}

func (h *Handlers) collectStop(w http.ResponseWriter, _ *http.Request) {
	h.job.Stop()
	httpx.WriteJSON(w, h.job.Status())
}

func (h *Handlers) trendingPublic(w http.ResponseWriter, r *http.Request) {
	h.trending(w, r)
}

func (h *Handlers) trending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	list, err := h.recommend.Trending(limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load trending events")
		return
	}
	httpx.WriteJSON(w, map[string]any{"events": list})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
