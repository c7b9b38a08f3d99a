// Package client implements the transport boundary of the query
// engine: authenticated JSON calls with per-call timeouts, retry
// classification and request metrics.
//
// Callers above this package never deal with wire details, only the
// outcome contract: a response body, an empty result, or a typed
// error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/neptune-ai/neptune-query-go/pkg/config"
	"github.com/neptune-ai/neptune-query-go/pkg/querymeta"
	"github.com/neptune-ai/neptune-query-go/pkg/retry"
	"github.com/neptune-ai/neptune-query-go/pkg/warnings"
)

// Prometheus metrics for backend requests.
var (
	nqRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nq_requests_total",
		Help: "Total backend requests by endpoint and status",
	}, []string{"endpoint", "status"})

	nqRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nq_request_duration_seconds",
		Help:    "Backend request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// TokenProvider supplies the bearer credential for each request. The
// engine never refreshes credentials itself; an expired credential
// surfaces as a fatal authorization error.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider around a fixed credential.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Config holds client configuration.
type Config struct {
	// BaseURL of the backend, e.g. "https://app.neptune.ai".
	BaseURL string

	// TokenProvider supplies the bearer credential (REQUIRED).
	TokenProvider TokenProvider

	// Limits are the resolved engine limits. The zero value means
	// config.FromEnv().
	Limits config.Limits

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client

	// UserAgent overrides the generated User-Agent header. Optional.
	UserAgent string
}

// Client is the authenticated backend client. It is safe for
// concurrent use; the underlying connection pool is shared across all
// calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	userAgent  string
	limits     config.Limits
	retry      *retry.Handler
	warnings   *warnings.Registry
	logger     zerolog.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.TokenProvider == nil {
		return nil, fmt.Errorf("token provider is required")
	}

	limits := cfg.Limits
	if limits == (config.Limits{}) {
		limits = config.FromEnv()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: limits.HTTPTimeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = generateUserAgent()
	}

	logger := log.With().Str("component", "nq-client").Logger()
	warningRegistry := warnings.NewRegistry(logger)

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     cfg.TokenProvider,
		userAgent:  userAgent,
		limits:     limits,
		retry:      retry.NewHandler(retry.ConfigFromLimits(limits), warningRegistry, logger),
		warnings:   warningRegistry,
		logger:     logger,
	}, nil
}

// Limits returns the resolved engine limits.
func (c *Client) Limits() config.Limits {
	return c.limits
}

// Warnings returns the client's warning registry.
func (c *Client) Warnings() *warnings.Registry {
	return c.warnings
}

// Call POSTs a JSON body to path and returns the response body. The
// call is retried per the retry classification; missing-data statuses
// come back wrapping retry.ErrEmptyResult so read paths can treat
// them as an empty contribution.
func (c *Client) Call(ctx context.Context, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	start := time.Now()
	defer func() {
		nqRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}()

	result, err := c.retry.Do(ctx, func(ctx context.Context) (retry.Result, error) {
		return c.attempt(ctx, path, encoded)
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// attempt issues exactly one HTTP request with its own timeout.
func (c *Client) attempt(ctx context.Context, path string, body []byte) (retry.Result, error) {
	callCtx := ctx
	if c.limits.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.limits.HTTPTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return retry.Result{}, err
	}

	token, err := c.tokens.Token(callCtx)
	if err != nil {
		return retry.Result{}, fmt.Errorf("obtain token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if meta, ok := querymeta.From(ctx); ok {
		req.Header.Set(querymeta.Header, meta.HeaderValue())
	}

	c.logger.Debug().
		Str("endpoint", path).
		Int("body_bytes", len(body)).
		Msg("Executing backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		nqRequestsTotal.WithLabelValues(path, "network_error").Inc()
		return retry.Result{}, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		nqRequestsTotal.WithLabelValues(path, "network_error").Inc()
		return retry.Result{}, err
	}

	nqRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	return retry.Result{
		StatusCode: resp.StatusCode,
		Body:       responseBody,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP-date
// values and garbage yield zero, meaning no hint.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func generateUserAgent() string {
	return fmt.Sprintf("neptune-query-go/%s (%s; %s; %s)",
		querymeta.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
