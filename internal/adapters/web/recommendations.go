package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
	"eventscout/internal/usecase/recommend"
)

type recommendRequest struct {
	Interests []string `json:"interests"`
	Sentiment string   `json:"sentiment"`
}

func (h *Handlers) personalized(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())

	var req recommendRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	list := h.recommend.Personalized(r.Context(), identity.UserID, req.Interests, req.Sentiment)
	httpx.WriteJSON(w, map[string]any{"events": list, "count": len(list)})
}

func (h *Handlers) personalizedByUser(w http.ResponseWriter, r *http.Request) {
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

	list := h.recommend.Personalized(r.Context(), id, nil, r.URL.Query().Get("sentiment"))
	httpx.WriteJSON(w, map[string]any{"events": list, "count": len(list)})
}

func (h *Handlers) recommendationHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	identity, _ := httpx.IdentityFromContext(r.Context())
	requestor := domain.User{ID: identity.UserID, Role: identity.Role}

	entries, err := h.recommend.History(requestor, id, queryInt(r, "limit", 20))
	if errors.Is(err, recommend.ErrForbidden) {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	httpx.WriteJSON(w, map[string]any{"recommendations": entries, "count": len(entries)})
}

func (h *Handlers) discoverEvents(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())

	var req recommendRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	interests := req.Interests
	if len(interests) == 0 {
		interests = recommend.SplitInterests(r.URL.Query().Get("interests"))
	}
	sentiment := req.Sentiment
	if sentiment == "" {
		sentiment = r.URL.Query().Get("sentiment")
	}

	list, err := h.recommend.Discover(r.Context(), identity.UserID, interests, sentiment, queryInt(r, "limit", 20))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to discover events")
		return
	}
	httpx.WriteJSON(w, map[string]any{"events": list, "count": len(list)})
}

func (h *Handlers) getPreferences(w http.ResponseWriter, r *http.Request) {
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

	interests, err := h.recommend.Preferences(id)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	httpx.WriteJSON(w, map[string]any{"interests": interests})
}

func (h *Handlers) updatePreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	identity, _ := httpx.IdentityFromContext(r.Context())
	if identity.UserID != id {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}

	var req struct {
		Interests []string `json:"interests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.recommend.UpdatePreferences(id, req.Interests); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	httpx.WriteJSON(w, map[string]string{"status": "saved"})
}
