// Package metrics records bootstrap run metrics in a Prometheus registry
// that is written out as a node_exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/newtron-network/newtboot/pkg/device"
)

// Metrics holds the collectors for one run.
type Metrics struct {
	registry *prometheus.Registry

	// ConnectAttempts counts driver open attempts per router and outcome
	ConnectAttempts *prometheus.CounterVec
	// RouterState is each router's current lifecycle state as its ordinal
	RouterState *prometheus.GaugeVec
	// Transitions counts lifecycle transitions by target state
	Transitions *prometheus.CounterVec
	// PhaseDuration tracks orchestration phase wall time
	PhaseDuration *prometheus.HistogramVec
	// PhaseFailures counts routers that failed in each phase
	PhaseFailures *prometheus.CounterVec
	// LastRun is the completion time of the last run, by result
	LastRun *prometheus.GaugeVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ConnectAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newtboot_connect_attempts_total",
				Help: "Driver open attempts per router, by outcome",
			},
			[]string{"router", "outcome"},
		),
		RouterState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "newtboot_router_state",
				Help: "Lifecycle state ordinal (0=disconnected .. 5=discarded)",
			},
			[]string{"router"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newtboot_transitions_total",
				Help: "Lifecycle transitions by target state",
			},
			[]string{"state"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newtboot_phase_duration_seconds",
				Help:    "Duration of orchestration phases in seconds",
				Buckets: []float64{0.1, 1, 10, 60, 300, 900},
			},
			[]string{"phase"},
		),
		PhaseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newtboot_phase_failures_total",
				Help: "Routers that failed an orchestration phase",
			},
			[]string{"phase"},
		),
		LastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "newtboot_last_run_timestamp_seconds",
				Help: "Unix time the last run finished, by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAttempt records one driver open attempt.
func (m *Metrics) RecordAttempt(router string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ConnectAttempts.WithLabelValues(router, outcome).Inc()
}

// RecordTransition records a lifecycle state change.
func (m *Metrics) RecordTransition(router string, from, to device.State) {
	m.RouterState.WithLabelValues(router).Set(float64(to))
	m.Transitions.WithLabelValues(to.String()).Inc()
}

// ObservePhase records a phase's duration and failed router count.
func (m *Metrics) ObservePhase(phase string, d time.Duration, failed int) {
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	if failed > 0 {
		m.PhaseFailures.WithLabelValues(phase).Add(float64(failed))
	}
}

// RecordRun records the end of a run.
func (m *Metrics) RecordRun(at time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.LastRun.WithLabelValues(result).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in text exposition format, atomically
// replacing path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
