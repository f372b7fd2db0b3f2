package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/jake-rosanno/justweather/internal/models"
	"github.com/jake-rosanno/justweather/internal/observability"
)

// WeatherFetcher is implemented by the service layer. Used by Warmer to avoid
// a circular dependency on the service package.
type WeatherFetcher interface {
	GetWeather(ctx context.Context, lat, lon float64) (models.WeatherRecord, error)
}

// Warmer keeps the cache populated for a configured set of coordinates by
// prefetching them on a schedule, so TTL expiry of popular locations does not
// translate into user-facing fan-out latency.
type Warmer struct {
	fetcher   WeatherFetcher
	logger    *zap.Logger
	scheduler *gocron.Scheduler
}

// NewWarmer creates a Warmer that uses the given fetcher and logger.
func NewWarmer(fetcher WeatherFetcher, logger *zap.Logger) *Warmer {
	return &Warmer{
		fetcher:   fetcher,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Warm fetches weather for each coordinate concurrently, populating the cache
// through the fetcher. Returns an aggregated error if any coordinate failed.
func (w *Warmer) Warm(ctx context.Context, coords []models.Coordinate) error {
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("coordinates", len(coords)))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(coords))
	for _, c := range coords {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.GetWeather(ctx, c.Latitude, c.Longitude); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", c.Key(), err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("coordinates", len(coords)), zap.Int("errors", len(errs)))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// Start runs an initial Warm, then schedules refreshes at the given interval.
// The interval should be shorter than the cache TTL or entries will still
// expire between runs.
func (w *Warmer) Start(coords []models.Coordinate, interval time.Duration) error {
	if len(coords) == 0 {
		if w.logger != nil {
			w.logger.Info("no coordinates configured for warming; scheduler not started")
		}
		return nil
	}

	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.Warm(ctx, coords); err != nil && w.logger != nil {
			w.logger.Warn("scheduled cache warm failed", zap.Error(err))
		}
	}
	job()

	if _, err := w.scheduler.Every(interval).Do(job); err != nil {
		return err
	}
	w.scheduler.StartAsync()
	return nil
}

// Stop stops the warming scheduler and cancels any future runs.
func (w *Warmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
