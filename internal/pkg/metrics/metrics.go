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
		Namespace: "passepartout",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "passepartout",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Guide engine metrics
	NarrationsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "guide",
		Name:      "narrations_triggered_total",
		Help:      "Total narration events fired on waypoint arrival",
	})

	PositionSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "guide",
		Name:      "position_samples_total",
		Help:      "Position samples received, by outcome (accepted, dropped)",
	}, []string{"outcome"})

	ChatSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "chat",
		Name:      "submissions_total",
		Help:      "Chat submissions, by outcome (chat, route, rejected, failed)",
	}, []string{"outcome"})

	RouteReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "chat",
		Name:      "route_replacements_total",
		Help:      "Times the active route was installed or replaced",
	})

	RoamPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "roam",
		Name:      "polls_total",
		Help:      "Roaming-summary polls issued",
	})

	RoamPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "roam",
		Name:      "poll_errors_total",
		Help:      "Roaming-summary polls that failed",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "passepartout",
		Subsystem: "guide",
		Name:      "active_sessions",
		Help:      "Current number of live guide sessions",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "passepartout",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	SpeechRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "speech",
		Name:      "requests_total",
		Help:      "Narration texts handed to the speech backend, by outcome",
	}, []string{"outcome"})

	WeatherCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "weather",
		Name:      "cache_hits_total",
		Help:      "Weather snapshots served from cache",
	})

	WeatherCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "passepartout",
		Subsystem: "weather",
		Name:      "cache_misses_total",
		Help:      "Weather snapshots fetched from the upstream provider",
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
