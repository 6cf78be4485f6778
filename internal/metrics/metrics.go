package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attribution outcome label values.
const (
	OutcomeCreated        = "created"
	OutcomeAlreadyExists  = "already_exists"
	OutcomeNotFound       = "not_found"
	OutcomeStorageFailure = "storage_failure"
)

// Metrics provides observability for layering and attribution.
type Metrics struct {
	// Attribution outcomes by result
	AttributionOutcome *prometheus.CounterVec

	// End-to-end Generate latency
	AttributionLatency prometheus.Histogram

	// Texts run through the classifier
	Classifications prometheus.Counter
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AttributionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wisdom_attribution_outcomes_total",
			Help: "Total attribution outcomes by result",
		}, []string{"outcome"}),

		AttributionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wisdom_attribution_duration_seconds",
			Help:    "Duration of attribution document generation",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		Classifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "wisdom_classifications_total",
			Help: "Total texts decomposed into layers",
		}),
	}
}

// IncrementOutcome records an attribution outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.AttributionOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveAttributionLatency records the duration of one Generate call.
func (m *Metrics) ObserveAttributionLatency(d time.Duration) {
	if m != nil {
		m.AttributionLatency.Observe(d.Seconds())
	}
}

// IncrementClassifications records one classifier run.
func (m *Metrics) IncrementClassifications() {
	if m != nil {
		m.Classifications.Inc()
	}
}
