// Package service contains the aggregation orchestrator: it turns one logical
// "weather for coordinates" request into a grid lookup, a concurrent fan-out
// of dependent resource fetches, a merge that tolerates partial upstream
// failure, and a best-effort observation fetch, with TTL caching around the
// whole thing.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jake-rosanno/justweather/internal/cache"
	"github.com/jake-rosanno/justweather/internal/client"
	"github.com/jake-rosanno/justweather/internal/models"
	"github.com/jake-rosanno/justweather/internal/normalize"
	"github.com/jake-rosanno/justweather/internal/observability"
	"github.com/jake-rosanno/justweather/internal/validation"
)

// ErrNoWeatherData means both the forecast and hourly resources ended up
// absent after the merge. This is the only fatal partial-failure condition.
var ErrNoWeatherData = errors.New("no weather data available")

const usCountry = "United States"

// WeatherService orchestrates weather aggregation and location search over
// the NOAA and geocoding upstreams with a shared TTL cache policy.
type WeatherService struct {
	noaa          client.NOAAAPI
	geocoder      client.Geocoder
	weatherCache  cache.Cache[models.WeatherRecord]
	locationCache cache.Cache[[]models.LocationResult]
	ttl           time.Duration
}

// NewWeatherService creates a WeatherService. ttl applies to both the weather
// and location caches.
func NewWeatherService(
	noaa client.NOAAAPI,
	geocoder client.Geocoder,
	weatherCache cache.Cache[models.WeatherRecord],
	locationCache cache.Cache[[]models.LocationResult],
	ttl time.Duration,
) *WeatherService {
	return &WeatherService{
		noaa:          noaa,
		geocoder:      geocoder,
		weatherCache:  weatherCache,
		locationCache: locationCache,
		ttl:           ttl,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetWeather aggregates the canonical weather record for the coordinates.
// Grid-lookup failures and the "no forecast and no hourly" condition are the
// only errors surfaced to the caller; every other sub-failure degrades the
// corresponding field to absent.
func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64) (models.WeatherRecord, error) {
	coord, err := validation.Coordinates(lat, lon)
	if err != nil {
		return models.WeatherRecord{}, err
	}

	key := "weather:" + coord.Key()
	logger := loggerFromContext(ctx)
	start := time.Now()

	cached, ok, cacheErr := s.weatherCache.Get(ctx, key)
	if cacheErr != nil {
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(cacheErr))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		observability.AggregationsTotal.WithLabelValues("cache_hit").Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("key", key))
		}
		return cached, nil
	}

	points, err := s.noaa.Points(ctx, coord)
	if err != nil {
		observability.AggregationsTotal.WithLabelValues("failed").Inc()
		return models.WeatherRecord{}, fmt.Errorf("locate forecast grid for %s: %w", coord.Key(), err)
	}

	fan := s.fanOut(ctx, points)
	record := s.merge(ctx, coord, points, fan)
	if record.Forecast == nil && record.Hourly == nil {
		observability.AggregationsTotal.WithLabelValues("failed").Inc()
		return models.WeatherRecord{}, fmt.Errorf("aggregate weather for %s: %w", coord.Key(), ErrNoWeatherData)
	}

	// Best-effort: the latest observation from the nearest station. Any
	// failure here leaves Current absent and never fails the aggregation.
	if fan.stationsErr == nil && len(fan.stations) > 0 {
		obs, obsErr := s.noaa.LatestObservation(ctx, fan.stations[0])
		if obsErr != nil {
			degrade(logger, client.ResourceObservation, obsErr)
		} else {
			record.Current = obs
		}
	} else if fan.stationsErr != nil {
		degrade(logger, client.ResourceStations, fan.stationsErr)
	}

	if setErr := s.weatherCache.Set(ctx, key, record, s.ttl); setErr != nil {
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}

	observability.AggregationsTotal.WithLabelValues("success").Inc()
	if logger != nil {
		logger.Debug("weather aggregated",
			zap.String("key", key),
			zap.Bool("forecast", record.Forecast != nil),
			zap.Bool("hourly", record.Hourly != nil),
			zap.Bool("current", record.Current != nil),
			zap.Duration("duration", time.Since(start)))
	}
	return record, nil
}

// fanOutResult captures each dependent call's outcome in its own slot: a
// settle-all join, never short-circuiting on the first failure.
type fanOutResult struct {
	forecast    *normalize.Document
	forecastErr error
	hourly      *normalize.Document
	hourlyErr   error
	extended    []byte
	extendedErr error
	stations    []string
	stationsErr error
}

// fanOut issues the four dependent calls concurrently. Each call retries
// independently inside the client; a failure in one never cancels the others.
func (s *WeatherService) fanOut(ctx context.Context, p *client.Points) *fanOutResult {
	var r fanOutResult
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		r.forecast, r.forecastErr = s.noaa.FetchPeriods(ctx, p.ForecastURL, client.ResourceForecast)
	}()
	go func() {
		defer wg.Done()
		r.hourly, r.hourlyErr = s.noaa.FetchPeriods(ctx, p.HourlyURL, client.ResourceHourly)
	}()
	go func() {
		defer wg.Done()
		r.extended, r.extendedErr = s.noaa.FetchGridData(ctx, p.GridDataURL)
	}()
	go func() {
		defer wg.Done()
		r.stations, r.stationsErr = s.noaa.FetchStations(ctx, p.StationsURL)
	}()
	wg.Wait()
	return &r
}

// merge normalizes each settled success into the canonical record. A fetch or
// normalization failure degrades that resource to absent.
func (s *WeatherService) merge(ctx context.Context, coord models.Coordinate, points *client.Points, fan *fanOutResult) models.WeatherRecord {
	logger := loggerFromContext(ctx)

	record := models.WeatherRecord{
		Coordinates: coord,
		Grid:        &points.Grid,
	}
	if points.Location != nil {
		loc := *points.Location
		loc.City = normalize.TitleCase(loc.City)
		record.Location = &loc
	}

	if fan.forecastErr != nil {
		degrade(logger, client.ResourceForecast, fan.forecastErr)
	} else if set, err := normalize.Forecast(fan.forecast); err != nil {
		degrade(logger, client.ResourceForecast, err)
	} else {
		record.Forecast = set
	}

	if fan.hourlyErr != nil {
		degrade(logger, client.ResourceHourly, fan.hourlyErr)
	} else if set, err := normalize.Hourly(fan.hourly); err != nil {
		degrade(logger, client.ResourceHourly, err)
	} else {
		record.Hourly = set
	}

	if fan.extendedErr != nil {
		degrade(logger, client.ResourceGridData, fan.extendedErr)
	} else {
		record.Extended = fan.extended
	}

	return record
}

func degrade(logger *zap.Logger, resource string, err error) {
	observability.PartialFailuresTotal.WithLabelValues(resource).Inc()
	if logger != nil {
		logger.Warn("resource degraded to absent",
			zap.String("resource", resource),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
	}
}

// SearchLocations resolves a free-text query to up to 5 location candidates.
// Empty or whitespace-only queries return an empty list without calling
// upstream. Zero upstream matches is success with an empty list.
func (s *WeatherService) SearchLocations(ctx context.Context, query string) ([]models.LocationResult, error) {
	trimmed, err := validation.SearchQuery(query)
	if err != nil {
		return nil, err
	}
	if trimmed == "" {
		observability.LocationSearchesTotal.WithLabelValues("empty_query").Inc()
		return []models.LocationResult{}, nil
	}

	key := "locations:" + trimmed
	logger := loggerFromContext(ctx)

	cached, ok, cacheErr := s.locationCache.Get(ctx, key)
	if cacheErr != nil {
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(cacheErr))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("locations").Inc()
		observability.LocationSearchesTotal.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}

	candidates, err := s.geocoder.Search(ctx, trimmed)
	if err != nil {
		observability.LocationSearchesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("search locations %q: %w", trimmed, err)
	}

	results := make([]models.LocationResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Name == "" || c.Latitude == nil || c.Longitude == nil || c.Admin1 == "" {
			continue
		}
		results = append(results, models.LocationResult{
			Name:      normalize.TitleCase(c.Name),
			Admin1:    c.Admin1,
			Country:   c.Country,
			Latitude:  fmt.Sprintf("%.4f", *c.Latitude),
			Longitude: fmt.Sprintf("%.4f", *c.Longitude),
		})
	}

	// US results first. The sort must be stable so upstream relevance order is
	// preserved within each group.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Country == usCountry && results[j].Country != usCountry
	})
	if len(results) > 5 {
		results = results[:5]
	}

	if setErr := s.locationCache.Set(ctx, key, results, s.ttl); setErr != nil {
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	observability.LocationSearchesTotal.WithLabelValues("success").Inc()
	return results, nil
}
