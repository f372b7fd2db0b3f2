package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jake-rosanno/justweather/internal/observability"
)

var (
	// ErrNotFound means the upstream returned 404 for the resource. Never retried.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited means the upstream returned 429. Retried with backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstreamFailure means the upstream returned a 5xx. Retried with backoff.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrTransport covers connection failures and per-attempt timeouts. Retried.
	ErrTransport = errors.New("transport failure")
	// ErrCircuitOpen means the circuit breaker rejected the call. Never retried.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrMalformedResponse means a 2xx payload was missing its required shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// transport is the shared backoff-retry JSON GET engine used by both the NOAA
// and geocoding clients. Each attempt has an independent deadline; retries
// apply to transport failures, 5xx, and 429 with a linearly increasing delay
// (base, 2*base). Other 4xx fail immediately.
type transport struct {
	httpClient     *http.Client
	timeout        time.Duration
	userAgent      string
	accept         string
	retryAttempts  int
	retryBaseDelay time.Duration
	breaker        *gobreaker.CircuitBreaker
}

func newTransport(timeout time.Duration, userAgent, accept string, retryAttempts int, retryBaseDelay time.Duration) *transport {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = time.Second
	}
	return &transport{
		httpClient:     &http.Client{},
		timeout:        timeout,
		userAgent:      userAgent,
		accept:         accept,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
	}
}

// getJSON fetches rawURL and decodes the body into out, retrying retryable
// failures up to the attempt budget. resource is the stable metrics label.
func (t *transport) getJSON(ctx context.Context, rawURL, resource string, out any) error {
	var lastErr error

	for attempt := 0; attempt < t.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.WithLabelValues(resource).Inc()
			delay := t.retryBaseDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := t.doOnce(ctx, rawURL, resource, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("exhausted retries: %w", lastErr)
}

func (t *transport) doOnce(ctx context.Context, rawURL, resource string, out any) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", t.accept)
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := t.roundTrip(req)
	duration := time.Since(start).Seconds()
	observability.UpstreamCallDuration.WithLabelValues(resource).Observe(duration)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(resource, "error").Inc()
		// The caller canceled; stop retrying regardless of the failure kind.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	observability.UpstreamCallsTotal.WithLabelValues(resource, statusLabel(resp.StatusCode)).Inc()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// roundTrip executes the request, routed through the circuit breaker when one
// is configured. 429 and 5xx count as breaker failures; other statuses do not.
func (t *transport) roundTrip(req *http.Request) (*http.Response, error) {
	if t.breaker == nil {
		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, transportError(err)
		}
		return resp, nil
	}

	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, transportError(err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, statusError(resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// statusError maps a non-2xx status to a sentinel error. Returns nil for 2xx.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	default:
		return fmt.Errorf("unexpected status: HTTP %d", code)
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamFailure)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}
