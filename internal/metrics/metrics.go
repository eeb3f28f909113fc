/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics exposes a controller's iteration, action, and phase
// transition counts as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slaterhq/slater/internal/policy"
)

// Metrics holds the counters an AgentController updates as it runs.
type Metrics struct {
	reg prometheus.Registerer

	Iterations       *prometheus.CounterVec
	ActionExecutions *prometheus.CounterVec
	ActionFailures   *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	ControlOutcomes  *prometheus.CounterVec
}

// New creates Metrics and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reg: reg,
		Iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slater",
			Name:      "iterations_total",
			Help:      "Total number of controller iterations executed, by agent_id and phase.",
		}, []string{"agent_id", "phase"}),
		ActionExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slater",
			Name:      "action_executions_total",
			Help:      "Total number of actions executed, by agent_id and action.",
		}, []string{"agent_id", "action"}),
		ActionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slater",
			Name:      "action_failures_total",
			Help:      "Total number of action failures, by agent_id and action.",
		}, []string{"agent_id", "action"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slater",
			Name:      "phase_transitions_total",
			Help:      "Total number of phase transitions, by agent_id, from_phase, and to_phase.",
		}, []string{"agent_id", "from_phase", "to_phase"}),
		ControlOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slater",
			Name:      "control_outcomes_total",
			Help:      "Total number of ControlPolicy outcomes, by agent_id and outcome.",
		}, []string{"agent_id", "outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.Iterations, m.ActionExecutions, m.ActionFailures, m.PhaseTransitions, m.ControlOutcomes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordIteration increments the iteration counter for agentID/phase.
func (m *Metrics) RecordIteration(agentID, ph string) {
	m.Iterations.WithLabelValues(agentID, ph).Inc()
}

// RecordAction increments the action-execution counter, and the
// failure counter too when failed is true.
func (m *Metrics) RecordAction(agentID, action string, failed bool) {
	m.ActionExecutions.WithLabelValues(agentID, action).Inc()
	if failed {
		m.ActionFailures.WithLabelValues(agentID, action).Inc()
	}
}

// RecordTransition increments the phase-transition counter.
func (m *Metrics) RecordTransition(agentID, fromPhase, toPhase string) {
	m.PhaseTransitions.WithLabelValues(agentID, fromPhase, toPhase).Inc()
}

// RecordOutcome increments the control-outcome counter.
func (m *Metrics) RecordOutcome(agentID string, outcome policy.Outcome) {
	m.ControlOutcomes.WithLabelValues(agentID, string(outcome)).Inc()
}
