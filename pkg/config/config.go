// Package config resolves engine limits from environment variables.
// The engine itself only ever consumes the resolved numeric values;
// callers may also construct a Limits struct directly in tests.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names understood by the client.
const (
	EnvMaxRequestSize          = "NEPTUNE_QUERY_MAX_REQUEST_SIZE"
	EnvMaxAttributeFilterSize  = "NEPTUNE_QUERY_MAX_ATTRIBUTE_FILTER_SIZE"
	EnvAttributeValuesBatch    = "NEPTUNE_QUERY_ATTRIBUTE_VALUES_BATCH_SIZE"
	EnvSeriesBatchSize         = "NEPTUNE_QUERY_SERIES_BATCH_SIZE"
	EnvDefinitionsBatchSize    = "NEPTUNE_QUERY_ATTRIBUTE_DEFINITIONS_BATCH_SIZE"
	EnvSysAttrsBatchSize       = "NEPTUNE_QUERY_SYS_ATTRS_BATCH_SIZE"
	EnvMaxWorkers              = "NEPTUNE_QUERY_MAX_WORKERS"
	EnvRetryMaxAttempts        = "NEPTUNE_QUERY_RETRY_MAX_ATTEMPTS"
	EnvRetryInitialBackoffMS   = "NEPTUNE_QUERY_RETRY_INITIAL_BACKOFF_MS"
	EnvRetryMaxBackoffMS       = "NEPTUNE_QUERY_RETRY_MAX_BACKOFF_MS"
	EnvHTTPTimeoutSeconds      = "NEPTUNE_HTTP_REQUEST_TIMEOUT_SECONDS"
	EnvQueryMetadataUserData   = "NEPTUNE_QUERY_METADATA"
	EnvAttributeCacheTTLSecond = "NEPTUNE_QUERY_ATTRIBUTE_CACHE_TTL_SECONDS"
)

// Limits holds every externally configurable bound the engine consumes.
type Limits struct {
	// MaxRequestSize is the serialized-size budget for one request body.
	MaxRequestSize int

	// MaxAttributeFilterSize bounds the serialized attribute-name filter.
	MaxAttributeFilterSize int

	// AttributeValuesBatchSize caps run x attribute cells per request.
	AttributeValuesBatchSize int

	// SeriesBatchSize caps series requested in one metrics call.
	SeriesBatchSize int

	// DefinitionsBatchSize is the page size for definition listing.
	DefinitionsBatchSize int

	// SysAttrsBatchSize is the page size for run/experiment search.
	SysAttrsBatchSize int

	// MaxWorkers bounds the fan-out worker pool and, transitively, the
	// number of batches a single split may produce for series fetches.
	MaxWorkers int

	// RetryMaxAttempts is the total attempt budget per call, including
	// the initial request.
	RetryMaxAttempts int

	// RetryInitialBackoff and RetryMaxBackoff bound the exponential
	// backoff between attempts.
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	// HTTPTimeout applies to each individual network call.
	HTTPTimeout time.Duration

	// AttributeCacheTTL is how long cached attribute pages stay valid.
	AttributeCacheTTL time.Duration
}

// Default limit values. MaxRequestSize admits 4400 run identifiers at
// the fixed 50-byte estimate, which matches observed backend limits.
const (
	DefaultMaxRequestSize           = 220_000
	DefaultMaxAttributeFilterSize   = 220_000
	DefaultAttributeValuesBatchSize = 10_000
	DefaultSeriesBatchSize          = 10_000
	DefaultDefinitionsBatchSize     = 10_000
	DefaultSysAttrsBatchSize        = 1_000
	DefaultMaxWorkers               = 32
	DefaultRetryMaxAttempts         = 3
	DefaultRetryInitialBackoff      = 1 * time.Second
	DefaultRetryMaxBackoff          = 30 * time.Second
	DefaultHTTPTimeout              = 60 * time.Second
	DefaultAttributeCacheTTL        = 5 * time.Minute
)

// DefaultLimits returns the built-in limit values.
func DefaultLimits() Limits {
	return Limits{
		MaxRequestSize:           DefaultMaxRequestSize,
		MaxAttributeFilterSize:   DefaultMaxAttributeFilterSize,
		AttributeValuesBatchSize: DefaultAttributeValuesBatchSize,
		SeriesBatchSize:          DefaultSeriesBatchSize,
		DefinitionsBatchSize:     DefaultDefinitionsBatchSize,
		SysAttrsBatchSize:        DefaultSysAttrsBatchSize,
		MaxWorkers:               DefaultMaxWorkers,
		RetryMaxAttempts:         DefaultRetryMaxAttempts,
		RetryInitialBackoff:      DefaultRetryInitialBackoff,
		RetryMaxBackoff:          DefaultRetryMaxBackoff,
		HTTPTimeout:              DefaultHTTPTimeout,
		AttributeCacheTTL:        DefaultAttributeCacheTTL,
	}
}

// FromEnv resolves limits from the environment, falling back to the
// defaults for unset or malformed values.
func FromEnv() Limits {
	l := DefaultLimits()
	l.MaxRequestSize = getEnvInt(EnvMaxRequestSize, l.MaxRequestSize)
	l.MaxAttributeFilterSize = getEnvInt(EnvMaxAttributeFilterSize, l.MaxAttributeFilterSize)
	l.AttributeValuesBatchSize = getEnvInt(EnvAttributeValuesBatch, l.AttributeValuesBatchSize)
	l.SeriesBatchSize = getEnvInt(EnvSeriesBatchSize, l.SeriesBatchSize)
	l.DefinitionsBatchSize = getEnvInt(EnvDefinitionsBatchSize, l.DefinitionsBatchSize)
	l.SysAttrsBatchSize = getEnvInt(EnvSysAttrsBatchSize, l.SysAttrsBatchSize)
	l.MaxWorkers = getEnvInt(EnvMaxWorkers, l.MaxWorkers)
	l.RetryMaxAttempts = getEnvInt(EnvRetryMaxAttempts, l.RetryMaxAttempts)
	l.RetryInitialBackoff = getEnvDuration(EnvRetryInitialBackoffMS, time.Millisecond, l.RetryInitialBackoff)
	l.RetryMaxBackoff = getEnvDuration(EnvRetryMaxBackoffMS, time.Millisecond, l.RetryMaxBackoff)
	l.HTTPTimeout = getEnvDuration(EnvHTTPTimeoutSeconds, time.Second, l.HTTPTimeout)
	l.AttributeCacheTTL = getEnvDuration(EnvAttributeCacheTTLSecond, time.Second, l.AttributeCacheTTL)
	return l
}

// UserMetadata returns the optional user-supplied query tag.
func UserMetadata() string {
	return os.Getenv(EnvQueryMetadataUserData)
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, unit time.Duration, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return time.Duration(value) * unit
}
