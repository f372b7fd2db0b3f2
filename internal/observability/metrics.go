package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream call rate per resource (points, forecast, hourly, grid, stations,
	// observation, geocoding). Watch for: error vs success ratio per resource.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per resource. Watch for: p95 > 2s (degradation), p99 > 5s (timeout risk).
	UpstreamCallDuration *prometheus.HistogramVec

	// Retry attempts per resource. Watch for: high retries = unstable upstream.
	UpstreamRetriesTotal *prometheus.CounterVec

	// Cache hits by cache type (weather, locations).
	CacheHitsTotal *prometheus.CounterVec

	// Aggregation outcomes: cache_hit, success, failed.
	AggregationsTotal *prometheus.CounterVec

	// Resources that degraded to absent during merge. Partial failure is normal,
	// but a sustained rate on one resource means that endpoint is unhealthy.
	PartialFailuresTotal *prometheus.CounterVec

	// Location search outcomes: cache_hit, success, failed, empty_query.
	LocationSearchesTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions per upstream.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Cache warming runs and failures.
	CacheWarmingTotal       prometheus.Counter
	CacheWarmingErrorsTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream API calls by resource and status",
		},
		[]string{"resource", "status"},
	)
	UpstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamCallDurationSeconds",
			Help:    "Upstream API latency in seconds (per attempt)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"resource"},
	)
	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total number of retry attempts for upstream calls",
		},
		[]string{"resource"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits by cache type",
		},
		[]string{"cacheType"},
	)
	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherAggregationsTotal",
			Help: "Total number of weather aggregations by outcome",
		},
		[]string{"outcome"},
	)
	PartialFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregationPartialFailuresTotal",
			Help: "Resources that degraded to absent during an aggregation merge",
		},
		[]string{"resource"},
	)
	LocationSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locationSearchesTotal",
			Help: "Total number of location searches by outcome",
		},
		[]string{"outcome"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by the rate limiter",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"upstream"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions per upstream",
		},
		[]string{"upstream", "from", "to"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Total number of cache warming runs that had at least one failure",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		UpstreamCallsTotal,
		UpstreamCallDuration,
		UpstreamRetriesTotal,
		CacheHitsTotal,
		AggregationsTotal,
		PartialFailuresTotal,
		LocationSearchesTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState,
		CircuitBreakerTransitionsTotal,
		CacheWarmingTotal,
		CacheWarmingErrorsTotal,
	)
}

// MetricsHandler returns the HTTP handler exposing the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordCircuitBreakerTransition updates breaker transition metrics and the
// state gauge. Wired into gobreaker's OnStateChange callback.
func RecordCircuitBreakerTransition(upstream, from, to string, stateValue float64) {
	CircuitBreakerTransitionsTotal.WithLabelValues(upstream, from, to).Inc()
	CircuitBreakerState.WithLabelValues(upstream).Set(stateValue)
}
