package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	wsConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webridge",
			Subsystem: "ws",
			Name:      "connections_total",
			Help:      "WebSocket connection lifecycle events.",
		},
		[]string{"event"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "webridge",
			Subsystem: "ws",
			Name:      "sessions_active",
			Help:      "Page sessions currently attached.",
		},
	)
	inboundPayloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webridge",
			Subsystem: "ws",
			Name:      "inbound_payloads_total",
			Help:      "Inbound WebSocket payloads by delivery disposition.",
		},
		[]string{"disposition"},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webridge",
			Subsystem: "bridge",
			Name:      "exchanges_total",
			Help:      "Request/reply exchanges against page sessions.",
		},
		[]string{"tool", "outcome"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webridge",
			Subsystem: "bridge",
			Name:      "exchange_duration_seconds",
			Help:      "Exchange duration in seconds, including the reply wait.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			wsConnections, sessionsActive, inboundPayloads,
			exchanges, exchangeDuration,
		)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordWSConnection(event string) {
	RegisterMetrics()
	wsConnections.WithLabelValues(event).Inc()
}

func SetSessionsActive(n int) {
	RegisterMetrics()
	sessionsActive.Set(float64(n))
}

func RecordInboundPayload(delivered bool) {
	RegisterMetrics()
	disposition := "dropped"
	if delivered {
		disposition = "delivered"
	}
	inboundPayloads.WithLabelValues(disposition).Inc()
}

func RecordExchange(tool, outcome string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(tool, outcome).Inc()
	exchangeDuration.WithLabelValues(tool, outcome).Observe(duration.Seconds())
}
