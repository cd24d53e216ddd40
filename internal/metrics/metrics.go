// Package metrics exposes the assistant's Prometheus metrics. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     *prometheus.CounterVec
	CycleDuration   *prometheus.HistogramVec
	SelectionsTotal *prometheus.CounterVec
	WakesTotal      *prometheus.CounterVec
	ActionsTotal    *prometheus.CounterVec
	SwitchesTotal   *prometheus.CounterVec
	TimeoutsTotal   prometheus.Counter
	State           *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vaani"
	}

	registry := prometheus.NewRegistry()

	cyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Recognition cycles by outcome",
		},
		[]string{"lang", "outcome"},
	)

	cycleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Recognition cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"recognizer"},
	)

	selectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_selections_total",
			Help:      "Recognizer strategy chosen per cycle",
		},
		[]string{"lang", "kind"},
	)

	wakesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakes_total",
			Help:      "Session activations by source",
		},
		[]string{"source"},
	)

	actionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by result",
		},
		[]string{"action", "status"},
	)

	switchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "language_switches_total",
			Help:      "Language switches by target language",
		},
		[]string{"lang"},
	)

	timeoutsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inactivity_timeouts_total",
			Help:      "Sessions ended by the inactivity deadline",
		},
	)

	state := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)

	registry.MustRegister(
		cyclesTotal,
		cycleDuration,
		selectionsTotal,
		wakesTotal,
		actionsTotal,
		switchesTotal,
		timeoutsTotal,
		state,
	)

	return &Metrics{
		registry:        registry,
		CyclesTotal:     cyclesTotal,
		CycleDuration:   cycleDuration,
		SelectionsTotal: selectionsTotal,
		WakesTotal:      wakesTotal,
		ActionsTotal:    actionsTotal,
		SwitchesTotal:   switchesTotal,
		TimeoutsTotal:   timeoutsTotal,
		State:           state,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCycle records a finished recognition cycle.
func (m *Metrics) RecordCycle(lang, recognizer, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(lang, outcome).Inc()
	m.CycleDuration.WithLabelValues(recognizer).Observe(d.Seconds())
}

// RecordSelection records the strategy chosen for a cycle.
func (m *Metrics) RecordSelection(lang, kind string) {
	if m == nil {
		return
	}
	m.SelectionsTotal.WithLabelValues(lang, kind).Inc()
}

// RecordWake records a session activation.
func (m *Metrics) RecordWake(source string) {
	if m == nil {
		return
	}
	m.WakesTotal.WithLabelValues(source).Inc()
}

// RecordAction records a dispatched action.
func (m *Metrics) RecordAction(action, status string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordSwitch records a language switch.
func (m *Metrics) RecordSwitch(lang string) {
	if m == nil {
		return
	}
	m.SwitchesTotal.WithLabelValues(lang).Inc()
}

// RecordTimeout records an inactivity timeout.
func (m *Metrics) RecordTimeout() {
	if m == nil {
		return
	}
	m.TimeoutsTotal.Inc()
}

// SetState marks state as current among all.
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(s).Set(v)
	}
}
