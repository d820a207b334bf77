// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label used for successful auth operations.
const OutcomeOK = "ok"

// Metrics contains the client's Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthOperations     *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	Navigations        *prometheus.CounterVec
}

// NewRegistry creates a registry with the standard Go and process
// collectors, separate from the global default registry.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers the client metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaide_auth_operations_total",
				Help: "Total number of auth gateway operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		SessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaide_session_transitions_total",
				Help: "Total number of session transitions by resulting state",
			},
			[]string{"state"},
		),
		Navigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaide_navigations_total",
				Help: "Total number of screen navigations by destination path",
			},
			[]string{"path"},
		),
	}

	reg.MustRegister(m.AuthOperations)
	reg.MustRegister(m.SessionTransitions)
	reg.MustRegister(m.Navigations)

	return m
}

// RecordAuth counts one gateway operation.
func (m *Metrics) RecordAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordTransition counts one session transition.
func (m *Metrics) RecordTransition(state string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(state).Inc()
}

// RecordNavigation counts one navigation.
func (m *Metrics) RecordNavigation(path string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(path).Inc()
}
