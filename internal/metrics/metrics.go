// Package metrics provides Prometheus instrumentation for the vitals
// scoring service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalflow",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vitalflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SamplesIngested counts raw samples accepted into the pipeline.
	SamplesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalflow",
		Name:      "samples_ingested_total",
		Help:      "Total raw samples accepted into stream sessions.",
	})

	// SamplesRejected counts malformed samples refused at ingestion.
	SamplesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalflow",
		Name:      "samples_rejected_total",
		Help:      "Total malformed samples rejected at ingestion.",
	})

	// ArtifactsFlagged counts per-channel artifact flags by kind.
	ArtifactsFlagged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalflow",
			Name:      "artifacts_flagged_total",
			Help:      "Total channel readings flagged, by artifact kind.",
		},
		[]string{"kind"},
	)

	// Assessments counts produced assessments by resulting state.
	Assessments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalflow",
			Name:      "assessments_total",
			Help:      "Total window assessments produced, by state.",
		},
		[]string{"state"},
	)

	// ActiveStreams tracks live stream sessions.
	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalflow",
		Name:      "active_streams",
		Help:      "Number of live stream sessions.",
	})

	// ActiveWebSocketClients tracks connected live-feed clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalflow",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalflow", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalflow", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalflow", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SamplesIngested,
		SamplesRejected,
		ArtifactsFlagged,
		Assessments,
		ActiveStreams,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and the
// goroutine count into gauges. Call in a goroutine; exits on ctx done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics handler for /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
