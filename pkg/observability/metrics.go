// Package observability holds the Prometheus metrics and the OpenTelemetry
// tracer used by question resolution.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "eda"
	resolveSubsystem = "resolve"
)

// Metrics records session outcomes. A nil *Metrics records nothing, so
// callers never need to check whether metrics are enabled.
type Metrics struct {
	// SessionsTotal counts finished sessions.
	// Labels: view (cells, netlist), status (RESOLVED, EXHAUSTED, CANCELLED, FAILED)
	SessionsTotal *prometheus.CounterVec

	// SessionDurationSeconds measures the wall time of one session.
	// Labels: view, status
	SessionDurationSeconds *prometheus.HistogramVec

	// RepairIterations observes the iteration count a session ended with.
	// Labels: view, status
	RepairIterations *prometheus.HistogramVec

	// StageDurationSeconds measures each state of the session.
	// Labels: stage (LINKING, CLASSIFYING, GENERATING, EXECUTING, REPAIRING)
	StageDurationSeconds *prometheus.HistogramVec

	// ExecutionsTotal counts executions by outcome.
	// Labels: view, error_class ("" on success)
	ExecutionsTotal *prometheus.CounterVec

	// TierTotal counts assigned tiers.
	// Labels: tier, defaulted (true, false)
	TierTotal *prometheus.CounterVec

	// ActiveSessions tracks sessions in flight.
	ActiveSessions prometheus.Gauge
}

// NewMetrics registers the resolution metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "sessions_total",
				Help:      "Finished resolution sessions by view and terminal status",
			},
			[]string{"view", "status"},
		),
		SessionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "session_duration_seconds",
				Help:      "Wall time of one resolution session",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"view", "status"},
		),
		RepairIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "repair_iterations",
				Help:      "Repair calls made by a session",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 10, 20},
			},
			[]string{"view", "status"},
		),
		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each session state",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "executions_total",
				Help:      "Candidate executions by view and error class",
			},
			[]string{"view", "error_class"},
		),
		TierTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "tier_total",
				Help:      "Complexity tiers assigned, and whether the default was used",
			},
			[]string{"tier", "defaulted"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: resolveSubsystem,
				Name:      "active_sessions",
				Help:      "Resolution sessions in flight",
			},
		),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionFinished records one terminal session. status is the terminal
// state, or "FAILED" for a fatal error.
func (m *Metrics) SessionFinished(view, status string, iterations int, d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.SessionsTotal.WithLabelValues(view, status).Inc()
	m.SessionDurationSeconds.WithLabelValues(view, status).Observe(d.Seconds())
	m.RepairIterations.WithLabelValues(view, status).Observe(float64(iterations))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveExecution(view, errorClass string) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(view, errorClass).Inc()
}

func (m *Metrics) ObserveTier(tier string, defaulted bool) {
	if m == nil {
		return
	}
	d := "false"
	if defaulted {
		d = "true"
	}
	m.TierTotal.WithLabelValues(tier, d).Inc()
}
