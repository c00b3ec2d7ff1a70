// Package metrics exposes Prometheus instruments for the intake wizard.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// IntakeMetrics counts wizard navigation, validation and submissions.
type IntakeMetrics struct {
	stepViews          *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	submitLatency      prometheus.Histogram
	activeSessions     prometheus.Gauge
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		stepViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "wizard",
			Name:      "step_views_total",
			Help:      "Number of times each wizard step became active",
		}, []string{"step"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "wizard",
			Name:      "validation_failures_total",
			Help:      "Step validations that found blank required fields",
		}, []string{"step"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "submission",
			Name:      "cases_total",
			Help:      "Case submissions to the clinic backend",
		}, []string{"outcome"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "submission",
			Name:      "latency_seconds",
			Help:      "Round trip time of case submissions",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "live",
			Name:      "active_sessions",
			Help:      "Connected wizard sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stepViews, m.validationFailures, m.submissions, m.submitLatency, m.activeSessions)
	return m
}

func (m *IntakeMetrics) ObserveStep(step string) {
	if m == nil {
		return
	}
	m.stepViews.WithLabelValues(step).Inc()
}

func (m *IntakeMetrics) ObserveValidationFailure(step string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(step).Inc()
}

func (m *IntakeMetrics) ObserveSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitLatency.Observe(seconds)
}

func (m *IntakeMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *IntakeMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
