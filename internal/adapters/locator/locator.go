package locator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"eventscout/internal/domain"
	"eventscout/internal/infra/googlemaps"
	"eventscout/internal/infra/llm"
)

// Настройки карты по умолчанию.
const (
	DefaultZoom  = 13
	CountryZoom  = 7
	VirtualLabel = "Virtual Event"
)

var virtualKeywords = []string{
	"online", "virtual", "zoom", "webinar", "streaming", "remote",
	"google meet", "microsoft teams", "livestream", "web conference",
}

var travelModes = map[string]bool{
	"driving":   true,
	"walking":   true,
	"bicycling": true,
	"transit":   true,
}

type chatClient interface {
	CompleteJSON(ctx context.Context, req llm.ChatRequest, out any) error
	Model() string
}

// Service разрешает локации событий: виртуальность, канонизация названия,
// геокодирование и построение маршрутов.
type Service struct {
	geocoder domain.Geocoder
	llm      chatClient
	country  string
	center   domain.MapCenter
	log      zerolog.Logger
}

// NewService создаёт сервис. llm может быть nil: тогда канонизация пропускается.
func NewService(geocoder domain.Geocoder, llmClient chatClient, country string, center domain.MapCenter, log zerolog.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		llm:      llmClient,
		country:  country,
		center:   center,
		log:      log.With().Str("component", "locator").Logger(),
	}
}

// Center возвращает дефолтный центр карты.
func (s *Service) Center() domain.MapCenter {
	return s.center
}

// IsVirtual сообщает, описывают ли локация и описание онлайн-событие.
func IsVirtual(location, description string) bool {
	lower := strings.ToLower(location + " " + description)
	for _, keyword := range virtualKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ParseInline разбирает локацию вида "name|lat,lon". Возвращает имя и
// координаты, если они закодированы в строке.
func ParseInline(location string) (string, *domain.Coordinates) {
	name, rest, found := strings.Cut(location, "|")
	if !found {
		return location, nil
	}
	latRaw, lonRaw, found := strings.Cut(rest, ",")
	if !found {
		return location, nil
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if errLat != nil || errLon != nil {
		return location, nil
	}
	name = strings.TrimSpace(name)
	return name, &domain.Coordinates{Lat: lat, Lon: lon, DisplayName: name}
}

// Resolve возвращает данные локации для карточки события.
// Про-тариф дополнительно получает глубокую ссылку на карту.
func (s *Service) Resolve(ctx context.Context, location, description string, plan domain.TierPlan) (domain.LocationData, error) {
	location = strings.TrimSpace(location)

	if location == "" || IsVirtual(location, description) {
		return domain.LocationData{
			IsVirtual:    true,
			LocationName: VirtualLabel,
			Coordinates:  nil,
			MapCenter:    s.center,
			ZoomLevel:    CountryZoom,
		}, nil
	}

	// Координаты, закодированные в самой строке, не требуют геокодера.
	if name, coords := ParseInline(location); coords != nil {
		data := domain.LocationData{
			IsVirtual:    false,
			LocationName: name,
			Coordinates:  coords,
			MapCenter:    domain.MapCenter{Lat: coords.Lat, Lon: coords.Lon},
			ZoomLevel:    DefaultZoom,
		}
		if plan.MapsLinks {
			data.MapURL = googlemaps.SearchURL(name)
		}
		return data, nil
	}

	query := s.canonicalize(ctx, location)

	coords, err := s.geocoder.Geocode(ctx, query, s.country)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("геокодирование не удалось, отдаём центр страны")
		return domain.LocationData{
			IsVirtual:    false,
			LocationName: location,
			Coordinates:  nil,
			MapCenter:    s.center,
			ZoomLevel:    CountryZoom,
		}, nil
	}

	data := domain.LocationData{
		IsVirtual:    false,
		LocationName: location,
		Coordinates:  &coords,
		MapCenter:    domain.MapCenter{Lat: coords.Lat, Lon: coords.Lon},
		ZoomLevel:    DefaultZoom,
	}
	if plan.MapsLinks {
		data.MapURL = googlemaps.SearchURL(query)
	}
	return data, nil
}

// canonicalize просит LLM привести сырую строку локации к виду, пригодному
// для геокодера. При любой ошибке возвращает исходную строку.
func (s *Service) canonicalize(ctx context.Context, location string) string {
	if s.llm == nil {
		return location
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := llm.ChatRequest{
		Temperature: 0,
		MaxTokens:   100,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You normalize venue strings for a geocoder. Answer with JSON only."},
			{Role: llm.RoleUser, Content: fmt.Sprintf(
				`Rewrite this event location as a single geocodable address string. Keep the venue name if present.
Return {"query": "..."}.

Location: %s`, location)},
		},
	}
	var parsed struct {
		Query string `json:"query"`
	}
	if err := s.llm.CompleteJSON(ctx, req, &parsed); err != nil {
		s.log.Debug().Err(err).Msg("канонизация локации не удалась")
		return location
	}
	if query := strings.TrimSpace(parsed.Query); query != "" {
		return query
	}
	return location
}

// Directions строит маршрут до события. Неизвестный режим приводится к driving.
// Ошибки провайдера сворачиваются в RouteError с запасной ссылкой.
func (s *Service) Directions(ctx context.Context, from, to, mode string) (domain.Route, *domain.RouteError) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if !travelModes[mode] {
		mode = "driving"
	}
	route, err := s.geocoder.Directions(ctx, from, to, mode)
	if err != nil {
		s.log.Warn().Err(err).Str("mode", mode).Msg("маршрут не построен")
		return domain.Route{}, &domain.RouteError{
			Reason:      "directions unavailable",
			FallbackURL: googlemaps.DirectionsURL(from, to, mode),
		}
	}
	return route, nil
}

// DirectionsSummary строит маршруты для всех режимов. Недоступные режимы
// пропускаются; если не доступен ни один, возвращается RouteError.
func (s *Service) DirectionsSummary(ctx context.Context, from, to string) ([]domain.Route, *domain.RouteError) {
	routes := make([]domain.Route, 0, len(travelModes))
	for _, mode := range []string{"driving", "walking", "bicycling", "transit"} {
		route, err := s.geocoder.Directions(ctx, from, to, mode)
		if err != nil {
			continue
		}
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, &domain.RouteError{
			Reason:      "directions unavailable",
			FallbackURL: googlemaps.DirectionsURL(from, to, "driving"),
		}
	}
	return routes, nil
}
