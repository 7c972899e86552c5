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
		Namespace: "stationmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stationmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Map session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stationmap",
		Subsystem: "session",
		Name:      "active",
		Help:      "Current number of open map sessions",
	})

	StationFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "session",
		Name:      "station_fetches_total",
		Help:      "Debounced station fetches by outcome (ok, error, dropped)",
	}, []string{"outcome"})

	RegionUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "session",
		Name:      "region_updates_total",
		Help:      "Viewport change events received before debouncing",
	})

	IngestDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "session",
		Name:      "ingest_dropped_total",
		Help:      "Bus stations not delivered because a session intake was full",
	})

	TripRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "trip",
		Name:      "requests_total",
		Help:      "Routing requests by outcome (ok, not_found, error, rejected)",
	}, []string{"outcome"})

	RoutingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stationmap",
		Subsystem: "trip",
		Name:      "routing_duration_seconds",
		Help:      "Latency of the routing service",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	StationsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "stations",
		Name:      "submitted_total",
		Help:      "Stations submitted by authenticated users",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stationmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stationmap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stationmap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stationmap",
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

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()
		status := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat reported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
