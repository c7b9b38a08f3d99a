// Package retrieval implements the read operations of the query
// engine. Each operation splits its input into size-bounded batches,
// fans the batches out over a bounded worker pool and merges the
// per-batch results into one deterministic answer.
package retrieval

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/neptune-ai/neptune-query-go/pkg/cache"
	"github.com/neptune-ai/neptune-query-go/pkg/config"
	"github.com/neptune-ai/neptune-query-go/pkg/warnings"
)

// Backend endpoints consumed by the engine.
const (
	pathAttributeDefinitions = "/api/leaderboard/v1/attributes/definitions"
	pathAttributeValues      = "/api/leaderboard/v1/attributes/values"
	pathMetricsSeries        = "/api/leaderboard/v1/metrics/series"
	pathSearch               = "/api/leaderboard/v1/search"
)

// Caller issues one backend call. *client.Client implements it; tests
// substitute scripted fakes.
type Caller interface {
	Call(ctx context.Context, path string, body any) ([]byte, error)
}

// Config holds engine configuration.
type Config struct {
	// Backend executes the calls (REQUIRED).
	Backend Caller

	// Limits are the resolved engine limits. The zero value means
	// config.FromEnv().
	Limits config.Limits

	// Cache is the optional attribute-page cache; nil disables it.
	Cache *cache.Manager

	// Warnings receives user-facing degradation warnings. Optional.
	Warnings *warnings.Registry
}

// Engine executes read operations against the backend.
type Engine struct {
	backend  Caller
	limits   config.Limits
	cache    *cache.Manager
	warnings *warnings.Registry
	logger   zerolog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}

	limits := cfg.Limits
	if limits == (config.Limits{}) {
		limits = config.FromEnv()
	}

	logger := log.With().Str("component", "nq-retrieval").Logger()
	warningRegistry := cfg.Warnings
	if warningRegistry == nil {
		warningRegistry = warnings.NewRegistry(logger)
	}

	return &Engine{
		backend:  cfg.Backend,
		limits:   limits,
		cache:    cfg.Cache,
		warnings: warningRegistry,
		logger:   logger,
	}, nil
}
