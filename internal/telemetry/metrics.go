// Package telemetry registers the Prometheus metrics exposed on /metrics.
//
// HTTP metrics are labelled by the chi route pattern (for example
// /api/categories/{id}), never the raw URL, so ids in paths do not create
// new series.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Domain metrics.
var (
	ContentViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guidebook_content_views_total",
		Help: "Content detail reads that incremented a view counter.",
	})

	SlugCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guidebook_slug_collisions_total",
		Help: "Category slugs that needed a numeric suffix to become unique.",
	})

	// TreeCacheRequestsTotal has a single label, result: hit, miss or error.
	TreeCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidebook_tree_cache_requests_total",
			Help: "Category tree cache lookups by result.",
		},
		[]string{"result"},
	)

	TreeDroppedCategoriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guidebook_tree_dropped_categories_total",
		Help: "Categories left out of an assembled tree because their parent could not be placed.",
	})
)

// DBOpenConnections is sampled by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "db_open_connections",
	Help: "Current number of open database connections in the pool.",
})

// StartDBStatsCollector samples pool statistics every 30 seconds until ctx
// is cancelled.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("db stats collector stopped")
				return
			case <-ticker.C:
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
