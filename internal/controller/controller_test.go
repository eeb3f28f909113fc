/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package controller

import (
	"context"
	"testing"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
	"github.com/slaterhq/slater/internal/spec"
	"github.com/slaterhq/slater/internal/state"
)

// emitOnce is a minimal Action that emits a single fixed Fact the
// first time it materializes, modeling a single-shot procedure step
// without pulling in the full internal/actions package.
type emitOnce struct {
	action.Base
	key   string
	value any
	scope fact.Scope
}

func (e *emitOnce) Materialize(_ *state.IterationState, _ iterctx.View) (action.Bound, error) {
	return action.Func{
		ActionName: e.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			return e.Emits().Build(map[string]any{e.key: e.value})
		},
	}, nil
}

func newEmitOnce(name, key string, value any, scope fact.Scope) *emitOnce {
	return &emitOnce{
		Base: action.Base{
			ActionName: name,
			EmissionDeclaration: emission.New(true).
				Declare(key, emission.Leaf(scope)),
		},
		key:   key,
		value: value,
		scope: scope,
	}
}

func twoPhaseSpec(t *testing.T) *spec.AgentSpec {
	t.Helper()
	phases, err := phase.NewSet("START", "DONE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := spec.New(spec.Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		ControlPolicy: policy.Control{
			CompletionKeys: phase.KeySet("task_complete"),
		},
		TransitionPolicy: policy.Transition{
			Default: "START",
			Rules: []phase.Rule{
				{Enter: "DONE", WhenAll: phase.KeySet("ready")},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", newEmitOnce("MarkReady", "ready", true, fact.ScopeSession)),
			"DONE":  procedure.NewTemplate("done", newEmitOnce("Finish", "task_complete", true, fact.ScopeSession)),
		},
		ValidateEmissions: true,
	})
	if err != nil {
		t.Fatalf("unexpected error building spec: %v", err)
	}
	return s
}

func TestRunAdvancesThroughPhasesToCompletion(t *testing.T) {
	ctx := context.Background()
	store := state.NewInMemoryStore()

	c, err := New(ctx, Options{
		Spec:            twoPhaseSpec(t),
		AgentID:         "agent-1",
		BootstrapConfig: config.Bootstrap{Goal: "test"},
		StateStore:      store,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := c.Run(ctx, 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != policy.OutcomeCompleted {
		t.Fatalf("expected OutcomeCompleted, got %v", result)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected exactly 2 iterations (START then DONE), got %d", result.Iterations)
	}

	history, err := store.History(ctx, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted iterations, got %d", len(history))
	}
}

func TestRunDetectsCycle(t *testing.T) {
	ctx := context.Background()
	phases, err := phase.NewSet("STUCK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := spec.New(spec.Params{
		Name:    "stuck-demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "STUCK",
			Rules: []phase.Rule{
				{Enter: "STUCK"},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"STUCK": procedure.NewTemplate("stuck", newEmitOnce("Loop", "loop_count", true, fact.ScopeSession)),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error building spec: %v", err)
	}

	c, err := New(ctx, Options{
		Spec:            s,
		AgentID:         "agent-2",
		BootstrapConfig: config.Bootstrap{},
		StateStore:      state.NewInMemoryStore(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.Run(ctx, 10, 3)
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
}
