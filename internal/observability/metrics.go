// Package observability provides the Prometheus instruments and the
// OpenTelemetry tracer provider used across the bot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot. Each Metrics
// owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Turns           *prometheus.CounterVec
	ModelCalls      *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	SearchDecisions *prometheus.CounterVec
	MemoryWrites    *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	InboxDepth      prometheus.Gauge
	VolatileWindows prometheus.Gauge
}

// NewMetrics registers the bot's instruments under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		ModelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by purpose and status.",
		}, []string{"purpose", "status"}),
		ModelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_seconds",
			Help:      "Model call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"purpose"}),
		SearchDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_decisions_total",
			Help:      "Search decisions by outcome.",
		}, []string{"outcome"}),
		MemoryWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_writes_total",
			Help:      "Durable memory writes by status.",
		}, []string{"status"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Administrative commands by name.",
		}, []string{"command"}),
		InboxDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inbox_depth",
			Help:      "Inbound messages waiting for a worker.",
		}),
		VolatileWindows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volatile_windows",
			Help:      "Live (author, scope) conversation windows.",
		}),
	}
}

// ObserveModelCall records one model call.
func (m *Metrics) ObserveModelCall(purpose, status string, d time.Duration) {
	m.ModelCalls.WithLabelValues(purpose, status).Inc()
	m.ModelLatency.WithLabelValues(purpose).Observe(d.Seconds())
}

// ObserveTurn records the outcome of one chat turn.
func (m *Metrics) ObserveTurn(outcome string) {
	m.Turns.WithLabelValues(outcome).Inc()
}

// ObserveSearchDecision records a search decision outcome.
func (m *Metrics) ObserveSearchDecision(outcome string) {
	m.SearchDecisions.WithLabelValues(outcome).Inc()
}

// ObserveMemoryWrite records a durable write.
func (m *Metrics) ObserveMemoryWrite(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.MemoryWrites.WithLabelValues(status).Inc()
}

// ObserveCommand records an administrative command.
func (m *Metrics) ObserveCommand(name string) {
	m.Commands.WithLabelValues(name).Inc()
}

// ObserveInboxDepth records how many messages wait for a worker.
func (m *Metrics) ObserveInboxDepth(n int) {
	m.InboxDepth.Set(float64(n))
}

// ObserveVolatileWindows records the number of live windows.
func (m *Metrics) ObserveVolatileWindows(n int) {
	m.VolatileWindows.Set(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
