// Package metrics exposes sequencer activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sweeney/led-sequencer/internal/logic"
)

const namespace = "ledseq"

// Metrics holds the sequencer collectors. All methods are called from the run loop.
type Metrics struct {
	events         *prometheus.CounterVec
	phaseEntries   *prometheus.CounterVec
	active         prometheus.Gauge
	restartPending prometheus.Gauge
	pendingAlarms  prometheus.Gauge
	lights         *prometheus.GaugeVec
}

// New registers the sequencer collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Sequencer events by type",
		}, []string{"type"}),
		phaseEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_entries_total",
			Help:      "Number of times each phase was entered",
		}, []string{"phase"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 while a sequence is running",
		}),
		restartPending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "restart_pending",
			Help:      "1 while a restart is queued",
		}),
		pendingAlarms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_alarms",
			Help:      "Alarms currently armed",
		}),
		lights: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output",
			Help:      "Output level (1 = on) by output",
		}, []string{"output"}),
	}
}

// Observe counts one sequencer event.
func (m *Metrics) Observe(e logic.Event) {
	m.events.WithLabelValues(string(e.Type)).Inc()
	switch e.Type {
	case logic.EventStart, logic.EventRestart, logic.EventPhase, logic.EventEnd:
		m.phaseEntries.WithLabelValues(e.Phase).Inc()
	}
}

// SetState records the current sequencer state.
func (m *Metrics) SetState(s logic.State, pendingAlarms int) {
	m.active.Set(boolGauge(s.Active))
	m.restartPending.Set(boolGauge(s.RestartPending))
	m.pendingAlarms.Set(float64(pendingAlarms))
	m.lights.WithLabelValues("first").Set(boolGauge(s.Lights.First))
	m.lights.WithLabelValues("second").Set(boolGauge(s.Lights.Second))
	m.lights.WithLabelValues("third").Set(boolGauge(s.Lights.Third))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
