package web

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
)

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())

	var req struct {
		Metadata map[string]any `json:"metadata"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.analytics.StartSession(identity.UserID, req.Metadata)
	if err != nil {
		h.log.Error().Err(err).Msg("сессия не создана")
		httpx.WriteError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	httpx.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"start_time": session.StartTime,
	})
}

func (h *Handlers) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	aggregate, err := h.analytics.EndSession(sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	httpx.WriteJSON(w, aggregate)
}

func (h *Handlers) sessionSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	snap, err := h.analytics.SessionSummary(sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	httpx.WriteJSON(w, snap)
}

func (h *Handlers) activeSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := h.analytics.ActiveSessions()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	httpx.WriteJSON(w, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (h *Handlers) eventAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	stats, err := h.analytics.EventAnalytics(id)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	httpx.WriteJSON(w, stats)
}

func (h *Handlers) organizerDashboard(w http.ResponseWriter, _ *http.Request) {
	dashboard, err := h.analytics.OrganizerDashboard()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}
	httpx.WriteJSON(w, dashboard)
}

func (h *Handlers) userEngagement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	identity, _ := httpx.IdentityFromContext(r.Context())
	if identity.UserID != id && identity.Role != domain.RoleOrganizer {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	history, err := h.analytics.UserEngagementHistory(id)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load engagement")
		return
	}
	httpx.WriteJSON(w, map[string]any{"interactions": history, "count": len(history)})
}
