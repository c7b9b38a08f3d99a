// Package metrics provides the centralized Prometheus metrics
// reference for the query engine. All metrics are defined in their
// respective packages (client, cache, retry) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - nq_requests_total{endpoint, status} (Counter): Total backend requests by endpoint and HTTP status
//   - nq_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Retry Metrics (pkg/retry):
//   - nq_retries_total{class} (Counter): Retry attempts by error class
//   - nq_retry_backoff_seconds{class} (Histogram): Backoff duration by error class
//   - nq_retry_exhausted_total{class} (Counter): Calls that exhausted the retry budget
//
// Cache Metrics (pkg/cache):
//   - nq_cache_hits_total{kind} (Counter): Attribute cache hits by request kind
//   - nq_cache_misses_total{kind} (Counter): Attribute cache misses by request kind
//   - nq_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(nq_cache_hits_total[5m])) /
//   (sum(rate(nq_cache_hits_total[5m])) + sum(rate(nq_cache_misses_total[5m])))
//
//   # Retry Pressure
//   rate(nq_retries_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(nq_request_duration_seconds_bucket[5m]))
//
//   # Exhausted Retry Budgets by Class
//   rate(nq_retry_exhausted_total[5m])
