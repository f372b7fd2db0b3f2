package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jake-rosanno/justweather/internal/client"
	"github.com/jake-rosanno/justweather/internal/radar"
	"github.com/jake-rosanno/justweather/internal/service"
	"github.com/jake-rosanno/justweather/internal/validation"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather   *service.WeatherService
	logger    *zap.Logger
	cachePing func() error // set when the cache backend is memcached
}

// NewHandler returns a new Handler. cachePing may be nil.
func NewHandler(weather *service.WeatherService, logger *zap.Logger, cachePing func() error) *Handler {
	return &Handler{
		weather:   weather,
		logger:    logger,
		cachePing: cachePing,
	}
}

// GetWeather handles GET /weather/{lat},{lon}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lat, latErr := strconv.ParseFloat(vars["lat"], 64)
	lon, lonErr := strconv.ParseFloat(vars["lon"], 64)
	if latErr != nil || lonErr != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "Invalid coordinates provided")
		return
	}

	record, err := h.weather.GetWeather(r.Context(), lat, lon)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// SearchLocations handles GET /locations?q=.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.weather.SearchLocations(r.Context(), query)
	if err != nil {
		if errors.Is(err, validation.ErrQueryTooLong) {
			writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "Search query is too long")
			return
		}
		writeError(w, r, http.StatusBadGateway, "SEARCH_FAILED", "Unable to search for locations. Please try again.")
		if logger := loggerFrom(r); logger != nil {
			logger.Debug("location search failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetRadarTile handles GET /radar/tiles?time=&product=. Pure computation.
func (h *Handler) GetRadarTile(w http.ResponseWriter, r *http.Request) {
	var t time.Time
	if raw := r.URL.Query().Get("time"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_TIMESTAMP", "time must be RFC 3339")
			return
		}
		t = parsed
	}
	product := radar.Product(r.URL.Query().Get("product"))
	writeJSON(w, http.StatusOK, map[string]string{
		"url": radar.TileURL(t, product),
	})
}

// GetRadarTimestamps handles GET /radar/timestamps.
func (h *Handler) GetRadarTimestamps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"timestamps": radar.Timestamps(),
	})
}

// GetRadarProducts handles GET /radar/products.
func (h *Handler) GetRadarProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, radar.Products())
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if h.cachePing != nil {
		if err := h.cachePing(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"reason": "cache unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeWeatherError translates aggregation errors into the user-visible
// responses: 404 "no data for this location", 429 "rate limited", 5xx
// "service unavailable", timeout "check connection", else generic retry.
func writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalidCoordinates):
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "Invalid coordinates provided")
	case errors.Is(err, client.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "No weather data available for this location")
	case errors.Is(err, client.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limited by the weather service; retry shortly")
	case errors.Is(err, client.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Weather service timed out; check your connection and retry")
	case errors.Is(err, client.ErrUpstreamFailure), errors.Is(err, client.ErrCircuitOpen):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Weather service temporarily unavailable")
	case errors.Is(err, service.ErrNoWeatherData):
		writeError(w, r, http.StatusBadGateway, "NO_WEATHER_DATA", "No weather data available right now; please retry")
	default:
		writeError(w, r, http.StatusBadGateway, "AGGREGATION_FAILED", "Unable to fetch weather data; please retry")
	}

	if logger := loggerFrom(r); logger != nil {
		logger.Debug("weather request failed",
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
	}
}

func loggerFrom(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok {
		return logger
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID, _ = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
