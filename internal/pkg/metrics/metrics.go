package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carelink",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carelink",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Proximity pipeline metrics
	TelemetryRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "bracelet",
		Name:      "records_total",
		Help:      "Total telemetry frames decoded from the bracelet stream",
	}, []string{"subject"})

	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "bracelet",
		Name:      "decode_failures_total",
		Help:      "Total telemetry frames that could not be decoded",
	}, []string{"subject"})

	JSONRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "bracelet",
		Name:      "json_repairs_total",
		Help:      "Total frames recovered by the JSON repair fallback",
	})

	StreamReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "bracelet",
		Name:      "reconnects_total",
		Help:      "Total reconnect attempts against the bracelet stream",
	}, []string{"subject"})

	StreamConnectivity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "bracelet",
		Name:      "connected",
		Help:      "1 while the bracelet stream is connected, 0 otherwise",
	}, []string{"subject"})

	DistanceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "tracking",
		Name:      "distance_updates_total",
		Help:      "Total accepted distance samples",
	}, []string{"subject"})

	SuppressedUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "tracking",
		Name:      "suppressed_updates_total",
		Help:      "Total sub-threshold distance updates suppressed",
	}, []string{"subject"})

	LastDistanceMeters = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "tracking",
		Name:      "last_distance_meters",
		Help:      "Last accepted observer-to-subject distance",
	}, []string{"subject"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carelink",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "carelink",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Reflection-free structural check keeps pgxpool out of this package.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
