package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	tileCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_cache_results_total",
			Help: "Tile cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	tileCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_evictions_total",
			Help: "Tiles evicted under entry or memory pressure.",
		},
	)

	tileCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_entries",
			Help: "Current number of cached tiles.",
		},
	)

	tileCacheMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_memory_bytes",
			Help: "Estimated memory held by the tile cache.",
		},
	)

	storeOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backing_store_op_duration_seconds",
			Help:    "Latency of backing-store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Backing-store purges by trigger.",
		},
		[]string{"trigger", "ok"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func IncTileCacheHit()  { tileCacheResults.WithLabelValues("hit").Inc() }
func IncTileCacheMiss() { tileCacheResults.WithLabelValues("miss").Inc() }
func IncTileCacheEviction() {
	tileCacheEvictions.Inc()
}

func SetTileCacheUsage(entries int, memoryBytes int64) {
	tileCacheEntries.Set(float64(entries))
	tileCacheMemoryBytes.Set(float64(memoryBytes))
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	storeOpSeconds.WithLabelValues(op, ok).Observe(durationSeconds)
}

func ObserveInvalidation(trigger string, err error) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	invalidationsTotal.WithLabelValues(trigger, ok).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
