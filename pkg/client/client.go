// Package client provides the core transit.land HTTP client with shared
// rate limiting and error classification.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amsross/transitlambda/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transit_api_requests_total",
		Help: "Total transit.land requests by resource and status",
	}, []string{"resource", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transit_api_request_duration_seconds",
		Help:    "transit.land request duration in seconds by resource",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transit_api_errors_total",
		Help: "Total transit.land errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public transit.land Datastore API root.
const DefaultBaseURL = "https://transit.land/api/v1"

// Default query parameters applied to every resource URL unless overridden.
const (
	DefaultPerPage   = "50"
	DefaultSortKey   = "id"
	DefaultSortOrder = "asc"
)

// Client is the transit.land API client. All requests pass through one
// shared rate limiter so the aggregate request rate, not the per-resource
// rate, stays under the upstream cap.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL).
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// Rate limiting: at most RateCapacity requests per RateWindow.
	RateCapacity int
	RateWindow   time.Duration

	// Timeout applies per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		UserAgent:    "transitlambda/1.0",
		RateCapacity: ratelimit.DefaultCapacity,
		RateWindow:   ratelimit.DefaultWindow,
		Timeout:      30 * time.Second,
	}
}

// New creates a new transit.land client with its own shared rate limiter.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "transit-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RateCapacity, cfg.RateWindow, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// ResourceURL builds a fully-qualified resource URL with the default
// pagination and sorting parameters applied underneath any caller-supplied
// filters.
func (c *Client) ResourceURL(resource string, params url.Values) string {
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("per_page", DefaultPerPage)
	q.Set("sort_key", DefaultSortKey)
	q.Set("sort_order", DefaultSortOrder)
	for key, values := range params {
		q.Del(key)
		for _, v := range values {
			q.Add(key, v)
		}
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + resource + "?" + q.Encode()
}

// Get fetches rawURL through the shared rate limiter and returns the
// response body. A non-2xx status is returned as an *APIError carrying the
// raw response body as its message; it is never retried here.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resource := resourceLabel(rawURL)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassCancelled)).Inc()
		return nil, fmt.Errorf("rate limit admission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("resource", resource).
		Str("url", rawURL).
		Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(resource, "network_error").Inc()
		c.logger.Error().Err(err).Str("resource", resource).Msg("HTTP request failed")
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	apiRequestsTotal.WithLabelValues(resource, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErrorsTotal.WithLabelValues(string(classifyStatus(resp.StatusCode))).Inc()
		c.logger.Warn().
			Str("resource", resource).
			Int("status", resp.StatusCode).
			Msg("API request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return body, nil
}

// Close releases the client's rate limiter.
func (c *Client) Close() {
	c.limiter.Close()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// resourceLabel extracts the resource name from a URL for metric labels,
// keeping label cardinality bounded.
func resourceLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	path := strings.Trim(u.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return "unknown"
	}
	return path
}
