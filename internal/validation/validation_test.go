package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCoordinates_Valid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantKey  string
	}{
		{"manhattan with float jitter", 40.71280001, -74.00600009, "40.7128,-74.0060"},
		{"origin", 0, 0, "0.0000,0.0000"},
		{"poles", 90, 180, "90.0000,180.0000"},
		{"negative extremes", -90, -180, "-90.0000,-180.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, err := Coordinates(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("Coordinates() error = %v", err)
			}
			if got := coord.Key(); got != tt.wantKey {
				t.Errorf("Key() = %q, want %q", got, tt.wantKey)
			}
		})
	}
}

func TestCoordinates_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude too high", 90.1, 0},
		{"latitude too low", -90.1, 0},
		{"longitude too high", 0, 180.1},
		{"longitude too low", 0, -180.1},
		{"NaN latitude", math.NaN(), 0},
		{"NaN longitude", 0, math.NaN()},
		{"infinite latitude", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Coordinates(tt.lat, tt.lon); !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("Coordinates(%v, %v) error = %v, want ErrInvalidCoordinates", tt.lat, tt.lon, err)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	got, err := SearchQuery("  Chicago  ")
	if err != nil {
		t.Fatalf("SearchQuery() error = %v", err)
	}
	if got != "Chicago" {
		t.Errorf("SearchQuery() = %q, want %q", got, "Chicago")
	}

	got, err = SearchQuery("   ")
	if err != nil {
		t.Fatalf("SearchQuery() error = %v", err)
	}
	if got != "" {
		t.Errorf("SearchQuery() = %q, want empty", got)
	}

	if _, err := SearchQuery(strings.Repeat("x", 201)); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("SearchQuery() error = %v, want ErrQueryTooLong", err)
	}
}
