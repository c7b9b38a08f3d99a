// Package retry wraps a single network call, classifies its outcome
// and retries transient failures with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/neptune-ai/neptune-query-go/pkg/config"
	"github.com/neptune-ai/neptune-query-go/pkg/warnings"
)

// Prometheus metrics for retry operations.
var (
	nqRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nq_retries_total",
		Help: "Total number of retry attempts by outcome class",
	}, []string{"class"})

	nqRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nq_retry_backoff_seconds",
		Help:    "Backoff duration for retries by outcome class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"class"})

	nqRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nq_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by outcome class",
	}, []string{"class"})
)

// Class is the classification of one call outcome.
type Class string

const (
	// ClassTransient covers transport failures, timeouts and 5xx.
	ClassTransient Class = "transient"

	// ClassRateLimit covers 429 responses.
	ClassRateLimit Class = "rate_limit"

	// ClassClientData covers 4xx statuses treated as "no data".
	ClassClientData Class = "client_data"

	// ClassAuth covers 401 and 403; always fatal.
	ClassAuth Class = "auth"

	// ClassUnexpected covers any other failing status; always fatal.
	ClassUnexpected Class = "unexpected"
)

// Classify maps a transport error or HTTP status to an outcome class.
// A nil error with a status below 400 is a success and returns "".
func Classify(statusCode int, err error) Class {
	if err != nil {
		return ClassTransient
	}
	switch {
	case statusCode < 400:
		return ""
	case statusCode == http.StatusTooManyRequests:
		return ClassRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ClassAuth
	case statusCode == http.StatusBadRequest,
		statusCode == http.StatusNotFound,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode == http.StatusUnprocessableEntity:
		return ClassClientData
	case statusCode >= 500:
		return ClassTransient
	default:
		return ClassUnexpected
	}
}

// Retryable reports whether a class is worth another attempt.
func Retryable(class Class) bool {
	return class == ClassTransient || class == ClassRateLimit
}

// Config bounds the retry loop.
type Config struct {
	// MaxAttempts is the total attempt budget, including the first
	// request.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       config.DefaultRetryMaxAttempts,
		InitialBackoff:    config.DefaultRetryInitialBackoff,
		MaxBackoff:        config.DefaultRetryMaxBackoff,
		BackoffMultiplier: 2.0,
	}
}

// ConfigFromLimits derives the retry configuration from resolved
// limits.
func ConfigFromLimits(l config.Limits) Config {
	return Config{
		MaxAttempts:       l.RetryMaxAttempts,
		InitialBackoff:    l.RetryInitialBackoff,
		MaxBackoff:        l.RetryMaxBackoff,
		BackoffMultiplier: 2.0,
	}
}

// Result is the parsed outcome of one network call as seen by the
// classifier: a status code, the (possibly empty) response body and an
// optional server-provided retry delay hint.
type Result struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

// Handler drives a call through classification and bounded retries.
type Handler struct {
	config   Config
	warnings *warnings.Registry
	logger   zerolog.Logger
}

// NewHandler creates a retry handler. The warning registry may be
// shared across handlers; it deduplicates throttling notices.
func NewHandler(cfg Config, reg *warnings.Registry, logger zerolog.Logger) *Handler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2.0
	}
	return &Handler{config: cfg, warnings: reg, logger: logger}
}

// Do executes call until it succeeds, fails fatally or the attempt
// budget runs out.
//
// Outcomes map to returns as follows: success returns the result;
// client-data statuses return ErrEmptyResult so read paths can carry
// on with an empty contribution; 401/403 return ErrUnauthorized;
// unexpected statuses return an APIError with the body attached;
// transient failures and 429 are retried with backoff, honoring the
// server's delay hint, and wrapped in ErrRetryExhausted once the
// budget is spent.
func (h *Handler) Do(ctx context.Context, call func(context.Context) (Result, error)) (Result, error) {
	var lastErr error
	backoff := h.config.InitialBackoff

	for attempt := 1; attempt <= h.config.MaxAttempts; attempt++ {
		result, err := call(ctx)
		class := Classify(result.StatusCode, err)

		switch class {
		case "":
			if attempt > 1 {
				h.logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return result, nil

		case ClassClientData:
			return result, &APIError{
				StatusCode: result.StatusCode,
				Class:      class,
				Err:        ErrEmptyResult,
			}

		case ClassAuth:
			return result, &APIError{
				StatusCode: result.StatusCode,
				Class:      class,
				Body:       string(result.Body),
				Err:        ErrUnauthorized,
			}

		case ClassUnexpected:
			return result, &APIError{
				StatusCode: result.StatusCode,
				Class:      class,
				Body:       string(result.Body),
			}
		}

		// Transient or rate-limited: remember the failure and back off.
		if err != nil {
			lastErr = err
		} else {
			lastErr = &APIError{StatusCode: result.StatusCode, Class: class}
		}
		h.warnOnce(class, result.StatusCode)

		if attempt >= h.config.MaxAttempts {
			break
		}

		nqRetriesTotal.WithLabelValues(string(class)).Inc()

		delay := jitter(backoff)
		if class == ClassRateLimit && result.RetryAfter > delay {
			delay = result.RetryAfter
		}
		nqRetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

		h.logger.Debug().
			Str("class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}

		backoff = time.Duration(float64(backoff) * h.config.BackoffMultiplier)
		if backoff > h.config.MaxBackoff {
			backoff = h.config.MaxBackoff
		}
	}

	class := ClassTransient
	if lastErr != nil {
		if apiErr, ok := lastErr.(*APIError); ok {
			class = apiErr.Class
		}
	}
	nqRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	h.logger.Warn().
		Str("class", string(class)).
		Int("max_attempts", h.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, h.config.MaxAttempts, lastErr)
}

// warnOnce reports throttling and degraded backends through the
// warning registry, which deduplicates per category.
func (h *Handler) warnOnce(class Class, statusCode int) {
	if h.warnings == nil {
		return
	}
	switch class {
	case ClassRateLimit:
		h.warnings.Warn(warnings.CategoryRateLimit,
			"backend rate limit reached, request will be retried with backoff")
	case ClassTransient:
		if statusCode >= 500 {
			h.warnings.Warn(warnings.CategoryServerError,
				fmt.Sprintf("backend returned status %d, request will be retried", statusCode))
		}
	}
}

// jitter spreads a backoff by +-20% to avoid thundering herds.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}
