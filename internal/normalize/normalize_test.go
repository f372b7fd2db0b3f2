package normalize

import (
	"errors"
	"testing"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

// TestForecast_Defaulting verifies that a period missing most fields comes back
// with every canonical default filled in.
func TestForecast_Defaulting(t *testing.T) {
	doc := &Document{
		Properties: &Properties{
			Periods: []Period{{Number: 1}},
		},
	}

	got, err := Forecast(doc)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(got.Periods) != 1 {
		t.Fatalf("len(Periods) = %d, want 1", len(got.Periods))
	}

	p := got.Periods[0]
	if p.Number != 1 {
		t.Errorf("Number = %d, want 1", p.Number)
	}
	if !p.IsDaytime {
		t.Error("IsDaytime = false, want default true")
	}
	if p.TemperatureUnit != "°F" {
		t.Errorf("TemperatureUnit = %q, want %q", p.TemperatureUnit, "°F")
	}
	if p.WindSpeed != "N/A" {
		t.Errorf("WindSpeed = %q, want %q", p.WindSpeed, "N/A")
	}
	if p.ShortForecast != "No forecast available" {
		t.Errorf("ShortForecast = %q, want default", p.ShortForecast)
	}
	if p.Temperature != nil {
		t.Errorf("Temperature = %v, want absent", *p.Temperature)
	}
	if p.ProbabilityOfPrecipitation.Value != 0 {
		t.Errorf("ProbabilityOfPrecipitation.Value = %v, want 0", p.ProbabilityOfPrecipitation.Value)
	}
	if p.RelativeHumidity.Value != nil {
		t.Errorf("RelativeHumidity.Value = %v, want absent", *p.RelativeHumidity.Value)
	}
}

// TestForecast_PreservesValues verifies present fields survive untouched.
func TestForecast_PreservesValues(t *testing.T) {
	doc := &Document{
		Properties: &Properties{
			Periods: []Period{{
				Number:                     3,
				Name:                       "Tonight",
				IsDaytime:                  boolPtr(false),
				StartTime:                  "2026-08-28T18:00:00-04:00",
				Temperature:                floatPtr(68),
				TemperatureUnit:            "F",
				WindSpeed:                  "5 to 10 mph",
				WindDirection:              "NW",
				ShortForecast:              "Partly Cloudy",
				DetailedForecast:           "Partly cloudy, with a low around 68.",
				ProbabilityOfPrecipitation: &Quantity{Value: floatPtr(30)},
				RelativeHumidity:           &Quantity{Value: floatPtr(72)},
			}},
		},
	}

	got, err := Forecast(doc)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	p := got.Periods[0]
	if p.Name != "Tonight" {
		t.Errorf("Name = %q, want %q", p.Name, "Tonight")
	}
	if p.IsDaytime {
		t.Error("IsDaytime = true, want false (explicit)")
	}
	if p.Temperature == nil || *p.Temperature != 68 {
		t.Errorf("Temperature = %v, want 68", p.Temperature)
	}
	if p.ProbabilityOfPrecipitation.Value != 30 {
		t.Errorf("ProbabilityOfPrecipitation.Value = %v, want 30", p.ProbabilityOfPrecipitation.Value)
	}
	if p.RelativeHumidity.Value == nil || *p.RelativeHumidity.Value != 72 {
		t.Errorf("RelativeHumidity.Value = %v, want 72", p.RelativeHumidity.Value)
	}
}

// TestForecast_InvalidPayload covers the one case normalization refuses to
// default: no properties object, or a missing/empty periods list.
func TestForecast_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil document", nil},
		{"missing properties", &Document{}},
		{"nil periods", &Document{Properties: &Properties{}}},
		{"empty periods", &Document{Properties: &Properties{Periods: []Period{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Forecast(tt.doc); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Forecast() error = %v, want ErrInvalidPayload", err)
			}
			if _, err := Hourly(tt.doc); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Hourly() error = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

// TestForecast_DoesNotMutateInput verifies normalization returns new data
// rather than patching the raw document.
func TestForecast_DoesNotMutateInput(t *testing.T) {
	doc := &Document{
		Properties: &Properties{
			Periods: []Period{{Number: 1, WindSpeed: ""}},
		},
	}

	if _, err := Forecast(doc); err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if doc.Properties.Periods[0].WindSpeed != "" {
		t.Error("input document was mutated")
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"new york", "New York"},
		{"SAN FRANCISCO", "SAN FRANCISCO"},
		{"saint-louis", "Saint-Louis"},
		{"o'fallon", "O'Fallon"},
		{"", ""},
		{"chicago", "Chicago"},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
