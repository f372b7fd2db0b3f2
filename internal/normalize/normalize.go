// Package normalize coerces raw NWS forecast payloads into the canonical,
// fully-defaulted period shape. Functions here are pure: they never touch the
// network and never mutate their input.
package normalize

import (
	"errors"

	"github.com/jake-rosanno/justweather/internal/models"
)

// ErrInvalidPayload is returned when a payload has no properties object or its
// periods list is missing or empty. This is the one case normalization does
// not silently default.
var ErrInvalidPayload = errors.New("invalid payload structure")

// Document is the raw wire shape of a forecast or hourly-forecast response.
// Pointer fields distinguish "absent" from zero values so defaulting is explicit.
type Document struct {
	Properties *Properties `json:"properties"`
}

// Properties holds the raw period list of a forecast document.
type Properties struct {
	Periods []Period `json:"periods"`
}

// Period is one raw, possibly partial forecast period as received upstream.
type Period struct {
	Number                     int       `json:"number"`
	Name                       string    `json:"name"`
	IsDaytime                  *bool     `json:"isDaytime"`
	StartTime                  string    `json:"startTime"`
	EndTime                    string    `json:"endTime"`
	Temperature                *float64  `json:"temperature"`
	TemperatureUnit            string    `json:"temperatureUnit"`
	WindSpeed                  string    `json:"windSpeed"`
	WindDirection              string    `json:"windDirection"`
	Icon                       string    `json:"icon"`
	ShortForecast              string    `json:"shortForecast"`
	DetailedForecast           string    `json:"detailedForecast"`
	ProbabilityOfPrecipitation *Quantity `json:"probabilityOfPrecipitation"`
	RelativeHumidity           *Quantity `json:"relativeHumidity"`
}

// Quantity is a raw unit-tagged measurement whose value may be null.
type Quantity struct {
	Value *float64 `json:"value"`
}

// Forecast validates and normalizes a raw multi-day forecast document.
// Every period comes back fully defaulted per the canonical shape.
func Forecast(doc *Document) (*models.PeriodSet, error) {
	return normalizeDocument(doc)
}

// Hourly validates and normalizes a raw hourly-forecast document. Hourly
// periods carry no name or day/night flag upstream; the canonical defaults
// ("" and true) apply.
func Hourly(doc *Document) (*models.PeriodSet, error) {
	return normalizeDocument(doc)
}

func normalizeDocument(doc *Document) (*models.PeriodSet, error) {
	if doc == nil || doc.Properties == nil {
		return nil, ErrInvalidPayload
	}
	raw := doc.Properties.Periods
	if len(raw) == 0 {
		return nil, ErrInvalidPayload
	}

	periods := make([]models.ForecastPeriod, 0, len(raw))
	for _, p := range raw {
		periods = append(periods, normalizePeriod(p))
	}
	return &models.PeriodSet{Periods: periods}, nil
}

func normalizePeriod(p Period) models.ForecastPeriod {
	out := models.ForecastPeriod{
		Number:           p.Number,
		Name:             p.Name,
		IsDaytime:        true,
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		Temperature:      p.Temperature,
		TemperatureUnit:  p.TemperatureUnit,
		WindSpeed:        p.WindSpeed,
		WindDirection:    p.WindDirection,
		Icon:             p.Icon,
		ShortForecast:    p.ShortForecast,
		DetailedForecast: p.DetailedForecast,
	}
	if p.IsDaytime != nil {
		out.IsDaytime = *p.IsDaytime
	}
	if out.TemperatureUnit == "" {
		out.TemperatureUnit = "°F"
	}
	if out.WindSpeed == "" {
		out.WindSpeed = "N/A"
	}
	if out.ShortForecast == "" {
		out.ShortForecast = "No forecast available"
	}
	if p.ProbabilityOfPrecipitation != nil && p.ProbabilityOfPrecipitation.Value != nil {
		out.ProbabilityOfPrecipitation.Value = *p.ProbabilityOfPrecipitation.Value
	}
	if p.RelativeHumidity != nil {
		out.RelativeHumidity.Value = p.RelativeHumidity.Value
	}
	return out
}
