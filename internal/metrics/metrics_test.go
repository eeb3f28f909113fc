/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/slaterhq/slater/internal/policy"
)

func TestRecordIterationIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.RecordIteration("agent-1", "START")
	m.RecordIteration("agent-1", "START")

	got := counterValue(t, m.Iterations.WithLabelValues("agent-1", "START"))
	if got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestRecordActionTracksFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.RecordAction("agent-1", "Validate", true)

	if got := counterValue(t, m.ActionExecutions.WithLabelValues("agent-1", "Validate")); got != 1 {
		t.Fatalf("expected 1 execution, got %v", got)
	}
	if got := counterValue(t, m.ActionFailures.WithLabelValues("agent-1", "Validate")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestRecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.RecordOutcome("agent-1", policy.OutcomeCompleted)

	if got := counterValue(t, m.ControlOutcomes.WithLabelValues("agent-1", "completed")); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("unexpected error writing metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
