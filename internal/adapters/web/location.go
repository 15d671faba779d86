package web

import (
	"errors"
	"net/http"

	"eventscout/internal/adapters/locator"
	"eventscout/internal/domain"
	httpx "eventscout/internal/infra/http"
)

func (h *Handlers) locateEvent(w http.ResponseWriter, r *http.Request) {
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

	identity, _ := httpx.IdentityFromContext(r.Context())
	data, err := h.locator.Resolve(r.Context(), event.Location, event.Description, domain.PlanForTier(identity.Tier))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to resolve location")
		return
	}
	httpx.WriteJSON(w, data)
}

// openLayersLocation отдаёт локацию в форме, удобной фронтенду на OpenLayers:
// центр как [lon, lat] и маркеры.
func (h *Handlers) openLayersLocation(w http.ResponseWriter, r *http.Request) {
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

	identity, _ := httpx.IdentityFromContext(r.Context())
	data, err := h.locator.Resolve(r.Context(), event.Location, event.Description, domain.PlanForTier(identity.Tier))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to resolve location")
		return
	}

	markers := []map[string]any{}
	if data.Coordinates != nil {
		markers = append(markers, map[string]any{
			"coordinates": []float64{data.Coordinates.Lon, data.Coordinates.Lat},
			"name":        data.LocationName,
			"event_id":    event.ID,
		})
	}
	httpx.WriteJSON(w, map[string]any{
		"center":     []float64{data.MapCenter.Lon, data.MapCenter.Lat},
		"zoom":       data.ZoomLevel,
		"is_virtual": data.IsVirtual,
		"markers":    markers,
	})
}

// eventsMap отдаёт витринную карту: маркеры только для событий с
// координатами, закодированными в локации. Геокодер здесь не вызывается.
func (h *Handlers) eventsMap(w http.ResponseWriter, _ *http.Request) {
	list, err := h.events.List()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	markers := []map[string]any{}
	for _, event := range list {
		name, coords := locator.ParseInline(event.Location)
		if coords == nil {
			continue
		}
		markers = append(markers, map[string]any{
			"event_id":    event.ID,
			"event_name":  event.Name,
			"name":        name,
			"coordinates": []float64{coords.Lon, coords.Lat},
			"event_type":  event.EventType,
		})
	}
	httpx.WriteJSON(w, map[string]any{
		"center":  []float64{h.locator.Center().Lon, h.locator.Center().Lat},
		"zoom":    locator.CountryZoom,
		"markers": markers,
	})
}

func (h *Handlers) directions(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())
	plan := domain.PlanForTier(identity.Tier)
	if !plan.Directions {
		httpx.WriteError(w, http.StatusForbidden, "directions require a pro subscription")
		return
	}

	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	if from == "" || to == "" {
		httpx.WriteError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	route, routeErr := h.locator.Directions(r.Context(), from, to, query.Get("mode"))
	if routeErr != nil {
		httpx.WriteJSON(w, map[string]any{"route_error": routeErr})
		return
	}
	httpx.WriteJSON(w, route)
}

func (h *Handlers) directionsSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpx.IdentityFromContext(r.Context())
	plan := domain.PlanForTier(identity.Tier)
	if !plan.Directions {
		httpx.WriteError(w, http.StatusForbidden, "directions require a pro subscription")
		return
	}

	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	if from == "" || to == "" {
		httpx.WriteError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	routes, routeErr := h.locator.DirectionsSummary(r.Context(), from, to)
	if routeErr != nil {
		httpx.WriteJSON(w, map[string]any{"route_error": routeErr})
		return
	}
	httpx.WriteJSON(w, map[string]any{"routes": routes})
}

// processLocations последовательно разрешает локации всех событий.
// Сбой одного события пропускается.
func (h *Handlers) processLocations(w http.ResponseWriter, r *http.Request) {
	list, err := h.events.List()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	identity, _ := httpx.IdentityFromContext(r.Context())
	plan := domain.PlanForTier(identity.Tier)

	resolved := []map[string]any{}
	skipped := 0
	for _, event := range list {
		data, err := h.locator.Resolve(r.Context(), event.Location, event.Description, plan)
		if err != nil {
			skipped++
			continue
		}
		resolved = append(resolved, map[string]any{
			"event_id": event.ID,
			"location": data,
		})
	}
	httpx.WriteJSON(w, map[string]any{
		"processed": len(resolved),
		"skipped":   skipped,
		"locations": resolved,
	})
}
