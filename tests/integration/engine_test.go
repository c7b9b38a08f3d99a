package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/neptune-ai/neptune-query-go/internal/testutil"
	"github.com/neptune-ai/neptune-query-go/pkg/cache"
	"github.com/neptune-ai/neptune-query-go/pkg/client"
	"github.com/neptune-ai/neptune-query-go/pkg/config"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/retrieval"
	"github.com/neptune-ai/neptune-query-go/pkg/retry"
)

const (
	definitionsPath = "/api/leaderboard/v1/attributes/definitions"
	searchPath      = "/api/leaderboard/v1/search"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func fastLimits() config.Limits {
	l := config.DefaultLimits()
	l.RetryInitialBackoff = 50 * time.Millisecond
	l.RetryMaxBackoff = 200 * time.Millisecond
	return l
}

func newEngine(t *testing.T, mock *testutil.MockBackend, cacheManager *cache.Manager) *retrieval.Engine {
	t.Helper()

	c, err := client.New(client.Config{
		BaseURL:       mock.URL(),
		TokenProvider: client.StaticToken("integration-token"),
		Limits:        fastLimits(),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	engine, err := retrieval.NewEngine(retrieval.Config{
		Backend: c,
		Limits:  fastLimits(),
		Cache:   cacheManager,
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

// TestDefinitionsServedFromCache verifies the full flow: backend fetch,
// cache store, cache hit without a second backend call.
func TestDefinitionsServedFromCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse(definitionsPath, testutil.NewHealthyResponse(
		`{"entries":[{"name":"loss","type":"float_series"},{"name":"config/lr","type":"float"}]}`))

	manager := cache.NewManager(redisClient, 5*time.Minute)
	engine := newEngine(t, mock, manager)

	ctx := context.Background()
	runs := []identifiers.SysID{"RUN-1"}

	defs1, err := engine.AttributeDefinitions(ctx, "ws/pr", runs, nil)
	if err != nil {
		t.Fatalf("First listing failed: %v", err)
	}
	if len(defs1) != 2 {
		t.Fatalf("First listing = %d definitions, want 2", len(defs1))
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("After first listing: backend requests = %d, want 1", mock.GetRequestCount())
	}

	defs2, err := engine.AttributeDefinitions(ctx, "ws/pr", runs, nil)
	if err != nil {
		t.Fatalf("Second listing failed: %v", err)
	}
	if len(defs2) != 2 {
		t.Fatalf("Second listing = %d definitions, want 2", len(defs2))
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("After second listing: backend requests = %d, want 1 (cache hit)", mock.GetRequestCount())
	}
}

// TestCacheExpirationRefetches verifies expired entries fall through to
// the backend.
func TestCacheExpirationRefetches(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse(definitionsPath, testutil.NewHealthyResponse(
		`{"entries":[{"name":"loss","type":"float_series"}]}`))

	manager := cache.NewManager(redisClient, time.Second)
	engine := newEngine(t, mock, manager)

	ctx := context.Background()
	runs := []identifiers.SysID{"RUN-1"}

	if _, err := engine.AttributeDefinitions(ctx, "ws/pr", runs, nil); err != nil {
		t.Fatalf("First listing failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := engine.AttributeDefinitions(ctx, "ws/pr", runs, nil); err != nil {
		t.Fatalf("Second listing failed: %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("Backend requests = %d, want 2 (cache expired)", mock.GetRequestCount())
	}
}

// TestRetry5xxThenSuccess verifies transient server errors are retried
// until the backend recovers.
func TestRetry5xxThenSuccess(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponseSequence(searchPath,
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewHealthyResponse(`{"entries":[{"sysId":"RUN-1","customRunId":"run-1"}]}`))

	engine := newEngine(t, mock, nil)

	runs, err := engine.SearchRuns(context.Background(), retrieval.SearchRequest{Project: "ws/pr"})
	if err != nil {
		t.Fatalf("Search failed after retries: %v", err)
	}
	if len(runs) != 1 || runs[0].SysID != "RUN-1" {
		t.Errorf("runs = %+v, want one RUN-1", runs)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Backend requests = %d, want 3 (2 retries + success)", mock.GetRequestCount())
	}
}

// TestUnauthorizedFailsFast verifies credential errors are fatal and
// never retried.
func TestUnauthorizedFailsFast(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse(searchPath, testutil.NewUnauthorizedResponse())

	engine := newEngine(t, mock, nil)

	_, err := engine.SearchRuns(context.Background(), retrieval.SearchRequest{Project: "ws/pr"})
	if !errors.Is(err, retry.ErrUnauthorized) {
		t.Fatalf("Search error = %v, want ErrUnauthorized", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Backend requests = %d, want 1 (no retries)", mock.GetRequestCount())
	}
}

// TestNotFoundIsEmptyListing verifies missing-project statuses degrade
// to an empty result instead of an error.
func TestNotFoundIsEmptyListing(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse(definitionsPath, testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "project not found"}`,
	})

	engine := newEngine(t, mock, nil)

	defs, err := engine.AttributeDefinitions(context.Background(), "ws/gone",
		[]identifiers.SysID{"RUN-1"}, nil)
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("definitions = %v, want empty", defs)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Backend requests = %d, want 1", mock.GetRequestCount())
	}
}
