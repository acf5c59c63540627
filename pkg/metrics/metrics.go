package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IdentityResolutions records credential resolver outcomes
	// (session|bearer|anonymous|fallback).
	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedeck_identity_resolutions_total",
			Help: "Total number of identity resolution attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CacheOperations counts generic cache activity (hit|miss|evict|sweep).
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedeck_cache_operations_total",
			Help: "Total number of cache operations by kind",
		},
		[]string{"kind"},
	)

	// DirectoryReads counts authoritative user directory reads (hit|miss|error).
	DirectoryReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedeck_directory_reads_total",
			Help: "Total number of directory resolutions by result",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicedeck_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
