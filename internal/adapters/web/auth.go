package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
)

// authLogin отправляет пользователя на страницу согласия Google.
// Выбранный до логина тариф передаётся через state и применяется
// только при создании нового пользователя.
func (h *Handlers) authLogin(w http.ResponseWriter, r *http.Request) {
	tier := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tier")))
	if tier == "" {
		tier = string(domain.TierFree)
	}
	if !domain.KnownTier(tier) {
		httpx.WriteError(w, http.StatusBadRequest, "unknown tier")
		return
	}

	authURL, err := h.oauth.AuthorizeURL(tier)
	if err != nil {
		h.log.Error().Err(err).Msg("OAuth не настроен")
		httpx.WriteError(w, http.StatusServiceUnavailable, "oauth is not configured")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

type userResponse struct {
	ID                  int64  `json:"id"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	Preferences         string `json:"preferences"`
	Role                string `json:"role"`
	Tier                string `json:"tier"`
	RecommendationCount int    `json:"recommendation_count"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:                  user.ID,
		Email:               user.Email,
		Name:                user.Name,
		Preferences:         user.Preferences,
		Role:                string(user.Role),
		Tier:                string(user.Tier),
		RecommendationCount: user.RecommendationCount,
	}
}

func (h *Handlers) authCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing authorization code")
		return
	}
	tier := domain.TierFree
	if state := query.Get("state"); domain.KnownTier(state) {
		tier = domain.Tier(strings.ToLower(state))
	}

	accessToken, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.log.Warn().Err(err).Msg("обмен кода не удался")
		httpx.WriteError(w, http.StatusUnauthorized, "authorization failed")
		return
	}
	profile, err := h.oauth.Profile(r.Context(), accessToken)
	if err != nil {
		h.log.Warn().Err(err).Msg("профиль не загружен")
		httpx.WriteError(w, http.StatusUnauthorized, "authorization failed")
		return
	}

	user, created, err := h.users.UpsertByEmail(profile, tier)
	if err != nil {
		h.log.Error().Err(err).Str("email", profile.Email).Msg("пользователь не сохранён")
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save user")
		return
	}

	token, err := httpx.IssueToken(h.jwtSecret, h.jwtTTL, user)
	if err != nil {
		h.log.Error().Err(err).Msg("токен не выписан")
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	httpx.WriteJSON(w, map[string]any{
		"token":    token,
		"user":     toUserResponse(user),
		"new_user": created,
	})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	user, err := h.users.GetByID(identity.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	httpx.WriteJSON(w, toUserResponse(user))
}

// selectTier проверяет тариф до логина и возвращает его ограничения.
func (h *Handlers) selectTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.KnownTier(req.Tier) {
		httpx.WriteError(w, http.StatusBadRequest, "unknown tier")
		return
	}
	plan := domain.PlanForTier(domain.Tier(strings.ToLower(req.Tier)))
	httpx.WriteJSON(w, map[string]any{
		"tier":               plan.Tier,
		"name":               plan.Name,
		"recommendation_cap": plan.RecommendationCap,
		"virtual_events":     plan.VirtualEvents,
		"directions":         plan.Directions,
	})
}

func (h *Handlers) upgrade(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())

	var req struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.recommend.Upgrade(identity.UserID, req.Tier)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Тариф зашит в JWT, после смены нужен свежий токен.
	token, err := httpx.IssueToken(h.jwtSecret, h.jwtTTL, user)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httpx.WriteJSON(w, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}
