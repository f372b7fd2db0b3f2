package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jake-rosanno/justweather/internal/models"
	"github.com/jake-rosanno/justweather/internal/normalize"
)

// Resource labels for upstream metrics. Stable; do not rename.
const (
	ResourcePoints      = "points"
	ResourceForecast    = "forecast"
	ResourceHourly      = "hourly"
	ResourceGridData    = "grid_data"
	ResourceStations    = "stations"
	ResourceObservation = "observation"
	ResourceGeocoding   = "geocoding"
)

// NOAAAPI is the upstream weather API surface the service layer depends on.
type NOAAAPI interface {
	Points(ctx context.Context, coord models.Coordinate) (*Points, error)
	FetchPeriods(ctx context.Context, url, resource string) (*normalize.Document, error)
	FetchGridData(ctx context.Context, url string) (json.RawMessage, error)
	FetchStations(ctx context.Context, url string) ([]string, error)
	LatestObservation(ctx context.Context, stationID string) (json.RawMessage, error)
}

// Points is the resolved grid lookup result: the four dependent resource URLs
// plus the grid identity and nearest-place block.
type Points struct {
	Grid        models.GridIdentity
	ForecastURL string
	HourlyURL   string
	GridDataURL string
	StationsURL string
	Location    *models.RelativeLocation
}

// NOAAClient talks to the NWS API (api.weather.gov). All calls identify
// themselves with a fixed User-Agent and accept geo+json, and go through the
// shared backoff-retry transport.
type NOAAClient struct {
	baseURL string
	t       *transport
}

// NewNOAAClient creates a NOAAClient. timeout is the per-attempt deadline;
// retryAttempts is the total attempt budget (3 = 1 original + 2 retries).
func NewNOAAClient(baseURL, userAgent string, timeout time.Duration, retryAttempts int, retryBaseDelay time.Duration) *NOAAClient {
	return &NOAAClient{
		baseURL: baseURL,
		t:       newTransport(timeout, userAgent, "application/geo+json", retryAttempts, retryBaseDelay),
	}
}

// SetCircuitBreaker guards all calls through cb. Pass nil to disable.
func (c *NOAAClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.t.breaker = cb
}

type pointsResponse struct {
	Properties *struct {
		GridID              string `json:"gridId"`
		GridX               int    `json:"gridX"`
		GridY               int    `json:"gridY"`
		Forecast            string `json:"forecast"`
		ForecastHourly      string `json:"forecastHourly"`
		ForecastGridData    string `json:"forecastGridData"`
		ObservationStations string `json:"observationStations"`
		RelativeLocation    *struct {
			Properties *struct {
				City     string `json:"city"`
				State    string `json:"state"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
				Bearing struct {
					Value float64 `json:"value"`
				} `json:"bearing"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

// Points resolves coordinates to their forecast grid via GET /points/{lat},{lon}.
// A response without a properties object is fatal for the aggregation.
func (c *NOAAClient) Points(ctx context.Context, coord models.Coordinate) (*Points, error) {
	var resp pointsResponse
	url := fmt.Sprintf("%s/points/%s", c.baseURL, coord.Key())
	if err := c.t.getJSON(ctx, url, ResourcePoints, &resp); err != nil {
		return nil, err
	}
	p := resp.Properties
	if p == nil {
		return nil, fmt.Errorf("%w: points response missing properties", ErrMalformedResponse)
	}

	out := &Points{
		Grid:        models.GridIdentity{GridID: p.GridID, GridX: p.GridX, GridY: p.GridY},
		ForecastURL: p.Forecast,
		HourlyURL:   p.ForecastHourly,
		GridDataURL: p.ForecastGridData,
		StationsURL: p.ObservationStations,
	}
	if p.RelativeLocation != nil && p.RelativeLocation.Properties != nil {
		rl := p.RelativeLocation.Properties
		out.Location = &models.RelativeLocation{
			City:     rl.City,
			State:    rl.State,
			Distance: rl.Distance.Value,
			Bearing:  rl.Bearing.Value,
		}
	}
	return out, nil
}

// FetchPeriods retrieves a forecast or hourly-forecast document from the URL
// supplied by the points response. Validation of the payload shape is the
// normalizer's job; this only decodes.
func (c *NOAAClient) FetchPeriods(ctx context.Context, url, resource string) (*normalize.Document, error) {
	var doc normalize.Document
	if err := c.t.getJSON(ctx, url, resource, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

type propertiesEnvelope struct {
	Properties json.RawMessage `json:"properties"`
}

// FetchGridData retrieves the extended grid-data properties, passed through as
// raw JSON without normalization.
func (c *NOAAClient) FetchGridData(ctx context.Context, url string) (json.RawMessage, error) {
	var resp propertiesEnvelope
	if err := c.t.getJSON(ctx, url, ResourceGridData, &resp); err != nil {
		return nil, err
	}
	if len(resp.Properties) == 0 {
		return nil, fmt.Errorf("%w: grid data missing properties", ErrMalformedResponse)
	}
	return resp.Properties, nil
}

type stationsResponse struct {
	Features []struct {
		Properties struct {
			StationIdentifier string `json:"stationIdentifier"`
		} `json:"properties"`
	} `json:"features"`
}

// FetchStations retrieves the observation station list and returns the
// station identifiers in upstream order (nearest first).
func (c *NOAAClient) FetchStations(ctx context.Context, url string) ([]string, error) {
	var resp stationsResponse
	if err := c.t.getJSON(ctx, url, ResourceStations, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Features))
	for _, f := range resp.Features {
		if f.Properties.StationIdentifier != "" {
			ids = append(ids, f.Properties.StationIdentifier)
		}
	}
	return ids, nil
}

// LatestObservation retrieves the latest observation for a station, passed
// through as raw properties.
func (c *NOAAClient) LatestObservation(ctx context.Context, stationID string) (json.RawMessage, error) {
	var resp propertiesEnvelope
	url := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, stationID)
	if err := c.t.getJSON(ctx, url, ResourceObservation, &resp); err != nil {
		return nil, err
	}
	if len(resp.Properties) == 0 {
		return nil, fmt.Errorf("%w: observation missing properties", ErrMalformedResponse)
	}
	return resp.Properties, nil
}
