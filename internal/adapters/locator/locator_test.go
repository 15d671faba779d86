package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"eventscout/internal/domain"
)

type stubGeocoder struct {
	coords     domain.Coordinates
	geocodeErr error
	route      domain.Route
	routeErr   error
	lastQuery  string
	lastMode   string
}

func (s *stubGeocoder) Geocode(_ context.Context, query, _ string) (domain.Coordinates, error) {
	s.lastQuery = query
	if s.geocodeErr != nil {
		return domain.Coordinates{}, s.geocodeErr
	}
	return s.coords, nil
}

func (s *stubGeocoder) Directions(_ context.Context, _, _, mode string) (domain.Route, error) {
	s.lastMode = mode
	if s.routeErr != nil {
		return domain.Route{}, s.routeErr
	}
	route := s.route
	route.Mode = mode
	return route, nil
}

var testCenter = domain.MapCenter{Lat: 7.8731, Lon: 80.7718}

func newTestService(geo domain.Geocoder) *Service {
	return NewService(geo, nil, "lk", testCenter, zerolog.Nop())
}

func TestIsVirtual(t *testing.T) {
	cases := []struct {
		location    string
		description string
		want        bool
	}{
		{"Zoom Meeting Room", "", true},
		{"Online via Google Meet", "", true},
		{"Colombo City Hall", "in-person gathering", false},
		{"Nelum Pokuna, Colombo 07", "streaming available for remote viewers", true},
		{"Viharamahadevi Park", "open air concert", false},
	}
	for _, tc := range cases {
		if got := IsVirtual(tc.location, tc.description); got != tc.want {
			t.Errorf("IsVirtual(%q, %q) = %v, ожидалось %v", tc.location, tc.description, got, tc.want)
		}
	}
}

func TestResolveVirtualEvent(t *testing.T) {
	svc := newTestService(&stubGeocoder{})
	data, err := svc.Resolve(context.Background(), "Online workshop on Zoom", "", domain.PlanForTier(domain.TierPro))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !data.IsVirtual {
		t.Fatal("событие должно быть виртуальным")
	}
	if data.Coordinates != nil {
		t.Fatal("у виртуального события не должно быть координат")
	}
	if data.MapCenter != testCenter || data.ZoomLevel != CountryZoom {
		t.Fatalf("карта = %+v зум %d", data.MapCenter, data.ZoomLevel)
	}
}

func TestResolveEmptyLocationTreatedAsVirtual(t *testing.T) {
	svc := newTestService(&stubGeocoder{})
	data, err := svc.Resolve(context.Background(), "  ", "", domain.PlanForTier(domain.TierFree))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !data.IsVirtual || data.LocationName != VirtualLabel {
		t.Fatalf("ожидалась метка %q, получено %+v", VirtualLabel, data)
	}
}

func TestParseInline(t *testing.T) {
	name, coords := ParseInline("Nelum Pokuna|6.9146,79.8615")
	if name != "Nelum Pokuna" || coords == nil || coords.Lat != 6.9146 || coords.Lon != 79.8615 {
		t.Fatalf("разбор = %q %+v", name, coords)
	}
	if _, coords := ParseInline("Galle Face Green"); coords != nil {
		t.Fatalf("строка без координат дала %+v", coords)
	}
	if _, coords := ParseInline("Broken|not,numbers"); coords != nil {
		t.Fatalf("мусорные координаты дали %+v", coords)
	}
}

func TestResolveInlineCoordinatesSkipGeocoder(t *testing.T) {
	geo := &stubGeocoder{geocodeErr: errors.New("must not be called")}
	svc := newTestService(geo)

	data, err := svc.Resolve(context.Background(), "Nelum Pokuna|6.9146,79.8615", "", domain.PlanForTier(domain.TierFree))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if data.Coordinates == nil || data.Coordinates.Lat != 6.9146 {
		t.Fatalf("координаты = %+v", data.Coordinates)
	}
	if geo.lastQuery != "" {
		t.Fatal("геокодер не должен вызываться для встроенных координат")
	}
}

func TestResolvePhysicalLocation(t *testing.T) {
	geo := &stubGeocoder{coords: domain.Coordinates{Lat: 6.9271, Lon: 79.8612, DisplayName: "Colombo"}}
	svc := newTestService(geo)

	data, err := svc.Resolve(context.Background(), "Galle Face Green", "", domain.PlanForTier(domain.TierPro))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if data.IsVirtual {
		t.Fatal("физическое событие помечено виртуальным")
	}
	if data.Coordinates == nil || data.Coordinates.Lat != 6.9271 {
		t.Fatalf("координаты = %+v", data.Coordinates)
	}
	if data.ZoomLevel != DefaultZoom {
		t.Fatalf("зум = %d", data.ZoomLevel)
	}
	if data.MapURL == "" {
		t.Fatal("про-тариф должен получать ссылку на карту")
	}
}

func TestResolveMapURLHiddenForFree(t *testing.T) {
	geo := &stubGeocoder{coords: domain.Coordinates{Lat: 6.9, Lon: 79.8}}
	svc := newTestService(geo)

	data, err := svc.Resolve(context.Background(), "Galle Face Green", "", domain.PlanForTier(domain.TierFree))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if data.MapURL != "" {
		t.Fatal("бесплатный тариф не должен получать ссылку на карту")
	}
}

func TestResolveGeocodeFailureFallsBack(t *testing.T) {
	geo := &stubGeocoder{geocodeErr: errors.New("boom")}
	svc := newTestService(geo)

	data, err := svc.Resolve(context.Background(), "Somewhere unknown", "", domain.PlanForTier(domain.TierFree))
	if err != nil {
		t.Fatalf("ошибка геокодера не должна всплывать: %v", err)
	}
	if data.Coordinates != nil {
		t.Fatal("координат быть не должно")
	}
	if data.MapCenter != testCenter || data.ZoomLevel != CountryZoom {
		t.Fatalf("ожидался центр страны, получено %+v зум %d", data.MapCenter, data.ZoomLevel)
	}
}

func TestDirectionsNormalizesMode(t *testing.T) {
	geo := &stubGeocoder{route: domain.Route{Distance: "5 km", Duration: "12 mins"}}
	svc := newTestService(geo)

	route, routeErr := svc.Directions(context.Background(), "Colombo Fort", "Galle Face Green", "TELEPORT")
	if routeErr != nil {
		t.Fatalf("неожиданная ошибка маршрута: %+v", routeErr)
	}
	if geo.lastMode != "driving" {
		t.Fatalf("режим = %q, ожидался driving", geo.lastMode)
	}
	if route.Distance != "5 km" {
		t.Fatalf("маршрут = %+v", route)
	}
}

func TestDirectionsFailureReturnsFallbackLink(t *testing.T) {
	geo := &stubGeocoder{routeErr: errors.New("no credentials")}
	svc := newTestService(geo)

	_, routeErr := svc.Directions(context.Background(), "A", "B", "walking")
	if routeErr == nil {
		t.Fatal("ожидалась структурная ошибка маршрута")
	}
	if routeErr.FallbackURL == "" {
		t.Fatal("запасная ссылка обязательна")
	}
}

func TestDirectionsSummarySkipsFailedModes(t *testing.T) {
	geo := &stubGeocoder{route: domain.Route{Distance: "5 km", Duration: "12 mins"}}
	svc := newTestService(geo)

	routes, routeErr := svc.DirectionsSummary(context.Background(), "A", "B")
	if routeErr != nil {
		t.Fatalf("неожиданная ошибка: %+v", routeErr)
	}
	if len(routes) != 4 {
		t.Fatalf("получено %d маршрутов, ожидалось 4", len(routes))
	}
}
