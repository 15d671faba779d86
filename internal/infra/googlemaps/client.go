package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

const defaultBaseURL = "https://maps.googleapis.com"

// ErrNoResults возвращается, когда геокодер не нашёл ни одного совпадения.
var ErrNoResults = errors.New("googlemaps: пустой результат")

// ErrNoCredentials возвращается при отсутствии ключа API.
var ErrNoCredentials = errors.New("googlemaps: не задан ключ API")

// Client выполняет запросы к Geocoding и Directions API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

var _ domain.Geocoder = (*Client)(nil)

// NewClient создаёт клиента Google Maps.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode возвращает координаты по текстовому запросу, ограничивая поиск страной.
func (c *Client) Geocode(ctx context.Context, query, country string) (domain.Coordinates, error) {
	if c.apiKey == "" {
		return domain.Coordinates{}, ErrNoCredentials
	}
	params := url.Values{}
	params.Set("address", query)
	if country != "" {
		params.Set("components", "country:"+strings.ToUpper(country))
	}
	params.Set("key", c.apiKey)

	var parsed geocodeResponse
	if err := c.getJSON(ctx, "/maps/api/geocode/json", params, "geocode", &parsed); err != nil {
		return domain.Coordinates{}, err
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return domain.Coordinates{}, ErrNoResults
	}
	first := parsed.Results[0]
	return domain.Coordinates{
		Lat:         first.Geometry.Location.Lat,
		Lon:         first.Geometry.Location.Lng,
		DisplayName: first.FormattedAddress,
	}, nil
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
			StartAddress string `json:"start_address"`
			EndAddress   string `json:"end_address"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions возвращает маршрут между двумя точками для указанного режима.
func (c *Client) Directions(ctx context.Context, from, to, mode string) (domain.Route, error) {
	if c.apiKey == "" {
		return domain.Route{}, ErrNoCredentials
	}
	params := url.Values{}
	params.Set("origin", from)
	params.Set("destination", to)
	params.Set("mode", mode)
	params.Set("key", c.apiKey)

	var parsed directionsResponse
	if err := c.getJSON(ctx, "/maps/api/directions/json", params, "directions", &parsed); err != nil {
		return domain.Route{}, err
	}
	if parsed.Status != "OK" || len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return domain.Route{}, ErrNoResults
	}
	route := parsed.Routes[0]
	leg := route.Legs[0]
	return domain.Route{
		Mode:      mode,
		Distance:  leg.Distance.Text,
		Duration:  leg.Duration.Text,
		StartAddr: leg.StartAddress,
		EndAddr:   leg.EndAddress,
		Summary:   route.Summary,
		MapsURL:   DirectionsURL(from, to, mode),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, operation string, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("googlemaps: build request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("googlemaps", operation, path, start, err)
	if err != nil {
		return fmt.Errorf("googlemaps: do request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("googlemaps: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("googlemaps: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("googlemaps: decode response: %w", err)
	}
	return nil
}

// SearchURL строит ссылку на поиск места в Google Maps.
func SearchURL(query string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query)
}

// DirectionsURL строит глубокую ссылку на маршрут в Google Maps.
func DirectionsURL(from, to, mode string) string {
	params := url.Values{}
	params.Set("api", "1")
	params.Set("origin", from)
	params.Set("destination", to)
	params.Set("travelmode", mode)
	return "https://www.google.com/maps/dir/?" + params.Encode()
}
