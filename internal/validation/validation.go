package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jake-rosanno/justweather/internal/models"
)

// ErrInvalidCoordinates is returned for out-of-range or non-numeric coordinates.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ErrQueryTooLong is returned when a search query exceeds the maximum length.
var ErrQueryTooLong = errors.New("query too long")

var validate = validator.New()

type coordinateInput struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

type queryInput struct {
	Query string `validate:"max=200"`
}

// Coordinates validates the latitude/longitude ranges and returns the
// coordinate rounded to four decimal places, ready for use as a cache key.
// NaN and infinities fail the range checks.
func Coordinates(lat, lon float64) (models.Coordinate, error) {
	if err := validate.Struct(coordinateInput{Latitude: lat, Longitude: lon}); err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, lat, lon)
	}
	return models.Coordinate{
		Latitude:  round4(lat),
		Longitude: round4(lon),
	}, nil
}

// SearchQuery trims the query and enforces the maximum length. An empty result
// is valid; the search pipeline treats it as "no results" without calling upstream.
func SearchQuery(q string) (string, error) {
	trimmed := strings.TrimSpace(q)
	if err := validate.Struct(queryInput{Query: trimmed}); err != nil {
		return "", ErrQueryTooLong
	}
	return trimmed, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
