// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omegachat"

// Generation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	generations       *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	tokens            *prometheus.CounterVec
	eventsDropped     prometheus.Counter
	subscribers       prometheus.Gauge
	modelsAvailable   prometheus.Gauge
	learningsApplied  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Backend generations by model and outcome.",
		}, []string{"model", "outcome"}),
		generationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Backend generation latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_tokens_total",
			Help:      "Tokens produced by the backend.",
		}, []string{"model"}),
		eventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_dropped_total",
			Help:      "Realtime events dropped on full subscriber buffers.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Connected realtime subscribers.",
		}),
		modelsAvailable: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models_available",
			Help:      "Models reported by the last model listing.",
		}),
		learningsApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learnings_applied_total",
			Help:      "Learnings included in outgoing prompts.",
		}),
	}
}

func (m *Metrics) ObserveGeneration(model, outcome string, d time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(model, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.generationSeconds.WithLabelValues(model).Observe(d.Seconds())
		m.tokens.WithLabelValues(model).Add(float64(tokens))
	}
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

func (m *Metrics) SetModelsAvailable(n int) {
	if m == nil {
		return
	}
	m.modelsAvailable.Set(float64(n))
}

func (m *Metrics) LearningsApplied(n int) {
	if m == nil {
		return
	}
	m.learningsApplied.Add(float64(n))
}
