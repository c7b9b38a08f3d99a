// Command nq-query runs ad-hoc queries against a Neptune-compatible
// backend: search runs, list attribute definitions, or summarize a
// metric into buckets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/neptune-ai/neptune-query-go/pkg/buckets"
	"github.com/neptune-ai/neptune-query-go/pkg/cache"
	"github.com/neptune-ai/neptune-query-go/pkg/client"
	"github.com/neptune-ai/neptune-query-go/pkg/config"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/logging"
	"github.com/neptune-ai/neptune-query-go/pkg/querymeta"
	"github.com/neptune-ai/neptune-query-go/pkg/retrieval"
)

func main() {
	var (
		op         = flag.String("op", "search", "operation: search, definitions, buckets")
		project    = flag.String("project", "", "project identifier (workspace/project)")
		query      = flag.String("query", "", "run filter query (search)")
		limit      = flag.Int("limit", 0, "maximum runs to return (search), 0 = all")
		runID      = flag.String("run", "", "run sys id (definitions, buckets)")
		attribute  = flag.String("attribute", "", "metric attribute name (buckets)")
		bucketN    = flag.Int("buckets", 10, "bucket count (buckets)")
		redisAddr  = flag.String("redis", "", "optional Redis address for the attribute cache")
		timeoutSec = flag.Int("timeout", 300, "overall operation timeout in seconds")
	)
	flag.Parse()

	logger := logging.Setup(logging.DefaultConfig())

	if *project == "" {
		logger.Fatal().Msg("-project is required")
	}

	baseURL := os.Getenv("NEPTUNE_API_URL")
	if baseURL == "" {
		baseURL = "https://app.neptune.ai"
	}
	token := os.Getenv("NEPTUNE_API_TOKEN")
	if token == "" {
		logger.Fatal().Msg("NEPTUNE_API_TOKEN is required")
	}

	limits := config.FromEnv()

	backend, err := client.New(client.Config{
		BaseURL:       baseURL,
		TokenProvider: client.StaticToken(token),
		Limits:        limits,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create backend client")
	}

	var cacheManager *cache.Manager
	if *redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", *redisAddr).Msg("Failed to connect to Redis")
		}
		cacheManager = cache.NewManager(redisClient, limits.AttributeCacheTTL)
		logger.Info().Str("addr", *redisAddr).Msg("Attribute cache enabled")
	}

	engine, err := retrieval.NewEngine(retrieval.Config{
		Backend: backend,
		Limits:  limits,
		Cache:   cacheManager,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create engine")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSec)*time.Second)
	defer cancel()
	ctx = querymeta.With(ctx, querymeta.New("nq-query/"+*op, config.UserMetadata()))

	proj := identifiers.ProjectIdentifier(*project)

	switch *op {
	case "search":
		runSearch(ctx, logger, engine, proj, *query, *limit)
	case "definitions":
		runDefinitions(ctx, logger, engine, proj, *runID)
	case "buckets":
		runBuckets(ctx, logger, engine, proj, *runID, *attribute, *bucketN)
	default:
		logger.Fatal().Str("op", *op).Msg("Unknown operation")
	}
}

func runSearch(ctx context.Context, logger zerolog.Logger, engine *retrieval.Engine, project identifiers.ProjectIdentifier, query string, limit int) {
	runs, err := engine.SearchRuns(ctx, retrieval.SearchRequest{
		Project: project,
		Query:   query,
		Limit:   limit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Search failed")
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\t%s\n", run.SysID, run.CustomRunID, run.ExperimentName)
	}
	logger.Info().Int("runs", len(runs)).Msg("Search complete")
}

func runDefinitions(ctx context.Context, logger zerolog.Logger, engine *retrieval.Engine, project identifiers.ProjectIdentifier, runID string) {
	if runID == "" {
		logger.Fatal().Msg("-run is required for definitions")
	}
	defs, err := engine.AttributeDefinitions(ctx, project,
		[]identifiers.SysID{identifiers.SysID(runID)}, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Definition listing failed")
	}
	for _, def := range defs {
		fmt.Printf("%s\t%s\n", def.Name, def.Type)
	}
	logger.Info().Int("definitions", len(defs)).Msg("Listing complete")
}

func runBuckets(ctx context.Context, logger zerolog.Logger, engine *retrieval.Engine, project identifiers.ProjectIdentifier, runID, attribute string, n int) {
	if runID == "" || attribute == "" {
		logger.Fatal().Msg("-run and -attribute are required for buckets")
	}

	series := identifiers.RunAttributeDefinition{
		Run: identifiers.RunIdentifier{
			Project: project,
			SysID:   identifiers.SysID(runID),
		},
		Attribute: identifiers.AttributeDefinition{
			Name: attribute,
			Type: identifiers.TypeFloatSeries,
		},
	}

	result, err := engine.MetricBuckets(ctx, retrieval.MetricBucketsRequest{
		Project: project,
		Series:  []identifiers.RunAttributeDefinition{series},
		Limit:   n,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Bucket aggregation failed")
	}

	for _, sb := range result {
		for _, b := range sb.Buckets {
			fmt.Printf("bucket %d\t%s\tpoints=%d\tmin=%g\tmax=%g\n",
				b.Index, formatInterval(b), b.FinitePointCount, b.YMin, b.YMax)
		}
	}
	logger.Info().Int("series", len(result)).Msg("Aggregation complete")
}

func formatInterval(b buckets.TimeseriesBucket) string {
	return fmt.Sprintf("(%g, %g]", b.FromX, b.ToX)
}
