package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jake-rosanno/justweather/internal/cache"
	"github.com/jake-rosanno/justweather/internal/client"
	"github.com/jake-rosanno/justweather/internal/config"
	httphandler "github.com/jake-rosanno/justweather/internal/http"
	"github.com/jake-rosanno/justweather/internal/models"
	"github.com/jake-rosanno/justweather/internal/observability"
	"github.com/jake-rosanno/justweather/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	noaaClient := client.NewNOAAClient(cfg.NOAABaseURL, cfg.UserAgent, cfg.NOAATimeout, cfg.RetryAttempts, cfg.RetryBaseDelay)
	geocodingClient := client.NewGeocodingClient(cfg.GeocodingBaseURL, cfg.UserAgent, cfg.GeocodingTimeout, cfg.RetryAttempts, cfg.RetryBaseDelay)

	if cfg.BreakerEnabled {
		noaaClient.SetCircuitBreaker(newBreaker("noaa", cfg))
		geocodingClient.SetCircuitBreaker(newBreaker("geocoding", cfg))
		logger.Info("circuit breakers enabled",
			zap.Int("max_failures", cfg.BreakerMaxFailures),
			zap.Duration("timeout", cfg.BreakerTimeout))
	}

	var (
		weatherCache  cache.Cache[models.WeatherRecord]
		locationCache cache.Cache[[]models.LocationResult]
		cachePing     func() error
		cacheCloser   func() error
	)
	switch cfg.CacheBackend {
	case "memcached":
		wc, err := cache.NewMemcached[models.WeatherRecord](cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		lc, err := cache.NewMemcached[[]models.LocationResult](cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		weatherCache, locationCache = wc, lc
		cachePing = wc.Ping
		cacheCloser = wc.Close
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		weatherCache = cache.NewInMemory[models.WeatherRecord]()
		locationCache = cache.NewInMemory[[]models.LocationResult]()
		logger.Info("cache backend: in_memory")
	}

	weatherService := service.NewWeatherService(noaaClient, geocodingClient, weatherCache, locationCache, cfg.CacheTTL)

	var warmer *cache.Warmer
	if len(cfg.WarmCoordinates) > 0 {
		warmer = cache.NewWarmer(weatherService, logger)
		if err := warmer.Start(cfg.WarmCoordinates, cfg.WarmInterval); err != nil {
			logger.Warn("cache warming scheduler failed to start", zap.Error(err))
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, logger, cachePing)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/radar/tiles", handler.GetRadarTile).Methods("GET")
	router.HandleFunc("/radar/timestamps", handler.GetRadarTimestamps).Methods("GET")
	router.HandleFunc("/radar/products", handler.GetRadarProducts).Methods("GET")

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/{lat:-?[0-9.]+},{lon:-?[0-9.]+}", handler.GetWeather).Methods("GET")

	locationsRouter := router.PathPrefix("/locations").Subrouter()
	locationsRouter.Use(httphandler.RateLimitMiddleware(limiter))
	locationsRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	locationsRouter.HandleFunc("", handler.SearchLocations).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if warmer != nil {
		warmer.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if cacheCloser != nil {
		if err := cacheCloser(); err != nil {
			logger.Warn("cache close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(ctx, logger); err != nil {
		fmt.Fprintf(os.Stderr, "flush telemetry: %v\n", err)
	}
}

func newBreaker(name string, cfg *config.Config) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.RecordCircuitBreakerTransition(name, from.String(), to.String(), breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
