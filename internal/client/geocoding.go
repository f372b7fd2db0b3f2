package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// Geocoder is the location-search surface the service layer depends on.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Candidate is one raw geocoding result. Coordinates are pointers so the
// service can filter out candidates missing either one.
type Candidate struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Admin1    string   `json:"admin1"`
	Country   string   `json:"country"`
}

// GeocodingClient talks to the Open-Meteo geocoding API through the shared
// backoff-retry transport with a shorter per-attempt deadline.
type GeocodingClient struct {
	baseURL string
	t       *transport
}

// NewGeocodingClient creates a GeocodingClient.
func NewGeocodingClient(baseURL, userAgent string, timeout time.Duration, retryAttempts int, retryBaseDelay time.Duration) *GeocodingClient {
	return &GeocodingClient{
		baseURL: baseURL,
		t:       newTransport(timeout, userAgent, "application/json", retryAttempts, retryBaseDelay),
	}
}

// SetCircuitBreaker guards all calls through cb. Pass nil to disable.
func (c *GeocodingClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.t.breaker = cb
}

type searchResponse struct {
	Results []Candidate `json:"results"`
}

// Search requests up to 10 candidates for the query. A response with no
// results field is a successful empty search, not an error.
func (c *GeocodingClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("name", query)
	params.Set("count", "10")
	params.Set("language", "en")
	params.Set("format", "json")

	var resp searchResponse
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	if err := c.t.getJSON(ctx, searchURL, ResourceGeocoding, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
