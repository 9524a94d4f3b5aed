package incr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the work done by the computations of an engine.
// A nil *Metrics records nothing.
type Metrics struct {
	// changes counts handled change records by operator and kind
	changes *prometheus.CounterVec

	// violations counts consistency violations by operator
	violations *prometheus.CounterVec

	// active tracks subscribed computations by operator
	active *prometheus.GaugeVec

	// unsubscribeQueue tracks asynchronous teardowns not yet completed
	unsubscribeQueue prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incr_changes_total",
			Help: "Change records handled by computations, by operator and kind",
		}, []string{"operator", "kind"}),

		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incr_consistency_violations_total",
			Help: "Consistency violations detected by computations, by operator",
		}, []string{"operator"}),

		active: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "incr_active_computations",
			Help: "Computations currently subscribed to their sources, by operator",
		}, []string{"operator"}),

		unsubscribeQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "incr_unsubscribe_queue_depth",
			Help: "Asynchronous teardowns waiting for or running on a worker",
		}),
	}
}

func (m *Metrics) change(operator, kind string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(operator, kind).Inc()
}

func (m *Metrics) violation(operator string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(operator).Inc()
}

func (m *Metrics) activated(operator string, delta float64) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(operator).Add(delta)
}

func (m *Metrics) queueDepth(n int64) {
	if m == nil {
		return
	}
	m.unsubscribeQueue.Set(float64(n))
}
