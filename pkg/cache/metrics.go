package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by request kind.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nq_cache_hits_total",
			Help: "Total number of attribute cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses tracks cache misses by request kind.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nq_cache_misses_total",
			Help: "Total number of attribute cache misses",
		},
		[]string{"kind"},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nq_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
