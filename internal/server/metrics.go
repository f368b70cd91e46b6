package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extraction metrics
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartflow_extractions_total",
			Help: "Total number of record extractions",
		},
		[]string{"dialect", "status"}, // status: complete, incomplete, error
	)

	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartflow_extraction_duration_seconds",
			Help:    "Record extraction duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 60},
		},
		[]string{"dialect"},
	)

	// Locate metrics
	locatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartflow_locates_total",
			Help: "Total number of locate requests",
		},
		[]string{"status"}, // status: found, not_found, error
	)

	// Publish metrics
	publishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartflow_publishes_total",
			Help: "Total number of publish attempts",
		},
		[]string{"action", "status"}, // action: created, updated, demo
	)

	// WebSocket metrics
	activeWebSockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chartflow_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// metricsHandler exposes the Prometheus scrape endpoint.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
