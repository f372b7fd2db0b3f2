package models

import (
	"encoding/json"
	"fmt"
)

// Coordinate is a latitude/longitude pair. Values are rounded to four decimal
// places before use as a cache key to bound cache cardinality and mask float
// jitter from geolocation sensors.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns the coordinate rendered with exactly four decimal places,
// e.g. "40.7128,-74.0060". Used as the variable part of weather cache keys.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// QuantityValue wraps a numeric measurement that always carries a value
// (defaulted to 0 when the upstream omits it).
type QuantityValue struct {
	Value float64 `json:"value"`
}

// OptionalQuantity wraps a numeric measurement that may legitimately be absent.
type OptionalQuantity struct {
	Value *float64 `json:"value"`
}

// ForecastPeriod is the canonical, fully-defaulted forecast period shape used
// for both multi-day and hourly periods. Every field has a deterministic
// default so consumers never need to null-check below one level.
type ForecastPeriod struct {
	Number                     int              `json:"number"`
	Name                       string           `json:"name"`
	IsDaytime                  bool             `json:"isDaytime"`
	StartTime                  string           `json:"startTime,omitempty"`
	EndTime                    string           `json:"endTime,omitempty"`
	Temperature                *float64         `json:"temperature"`
	TemperatureUnit            string           `json:"temperatureUnit"`
	WindSpeed                  string           `json:"windSpeed"`
	WindDirection              string           `json:"windDirection"`
	Icon                       string           `json:"icon,omitempty"`
	ShortForecast              string           `json:"shortForecast"`
	DetailedForecast           string           `json:"detailedForecast"`
	ProbabilityOfPrecipitation QuantityValue    `json:"probabilityOfPrecipitation"`
	RelativeHumidity           OptionalQuantity `json:"relativeHumidity"`
}

// PeriodSet holds the normalized periods of one forecast resource.
type PeriodSet struct {
	Periods []ForecastPeriod `json:"periods"`
}

// RelativeLocation describes the place nearest to the requested coordinates,
// taken from the grid-resolution response. City is title-cased.
type RelativeLocation struct {
	City     string  `json:"city"`
	State    string  `json:"state"`
	Distance float64 `json:"distance"`
	Bearing  float64 `json:"bearing"`
}

// GridIdentity identifies the NWS forecast grid cell covering the coordinates.
type GridIdentity struct {
	GridID string `json:"gridId"`
	GridX  int    `json:"gridX"`
	GridY  int    `json:"gridY"`
}

// WeatherRecord is the canonical aggregate returned by the orchestrator.
// At least one of Forecast or Hourly is always present in a successful record;
// Extended, Current, Location, and Grid are best-effort and may be absent.
// Records are immutable once returned and live only in the cache until TTL expiry.
type WeatherRecord struct {
	Forecast    *PeriodSet        `json:"forecast,omitempty"`
	Hourly      *PeriodSet        `json:"hourly,omitempty"`
	Extended    json.RawMessage   `json:"extended,omitempty"`
	Current     json.RawMessage   `json:"current,omitempty"`
	Location    *RelativeLocation `json:"location,omitempty"`
	Grid        *GridIdentity     `json:"grid,omitempty"`
	Coordinates Coordinate        `json:"coordinates"`
}

// LocationResult is one geocoding search candidate after filtering and
// normalization. Coordinates are rendered as 4-decimal strings.
type LocationResult struct {
	Name      string `json:"name"`
	Admin1    string `json:"admin1"`
	Country   string `json:"country"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}
