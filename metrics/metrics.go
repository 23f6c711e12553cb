package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// GatewayRequestsTotal counts calls to the generative model by operation and outcome.
	GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "latidos",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Total number of generative model calls, labeled by operation and result.",
	}, []string{"operation", "result"})

	// GatewayDurationSeconds is the wall time of a generative model call.
	GatewayDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "latidos",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Time spent waiting on the generative model, labeled by operation.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"operation"})

	// ReportsCreatedTotal counts reports accepted into the store.
	ReportsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "latidos",
		Subsystem: "store",
		Name:      "reports_created_total",
		Help:      "Total number of reports created, labeled by kind.",
	}, []string{"kind"})

	// MatchSuggestionsTotal counts suggestion lookups by whether they produced matches.
	MatchSuggestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "latidos",
		Subsystem: "matches",
		Name:      "suggestions_total",
		Help:      "Total number of match suggestion lookups, labeled by outcome (found, empty).",
	}, []string{"outcome"})

	// ActiveSessions is the number of live browser sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "latidos",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Current number of browser sessions held in memory.",
	})

	// WebsocketClients is the number of connected event listeners.
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "latidos",
		Subsystem: "events",
		Name:      "websocket_clients",
		Help:      "Current number of connected websocket clients.",
	})

	// PublishErrorTotal counts failed report.created publishes.
	PublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "latidos",
		Subsystem: "events",
		Name:      "publish_error_total",
		Help:      "Total number of report events that could not be published to RabbitMQ.",
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			GatewayRequestsTotal,
			GatewayDurationSeconds,
			ReportsCreatedTotal,
			MatchSuggestionsTotal,
			ActiveSessions,
			WebsocketClients,
			PublishErrorTotal,
		)
	})
}

// ObserveGateway records the outcome and duration of one model call.
func ObserveGateway(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GatewayRequestsTotal.WithLabelValues(operation, result).Inc()
	GatewayDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
