/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package spec

import (
	"context"
	"strings"
	"testing"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
	"github.com/slaterhq/slater/internal/state"
)

func mustPhases(t *testing.T, names ...string) phase.Set {
	t.Helper()
	set, err := phase.NewSet(names...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return set
}

// stubAction is a minimal Action implementation for spec-construction
// tests, which never materialize or execute an action.
type stubAction struct {
	action.Base
}

func (s *stubAction) Materialize(_ *state.IterationState, _ iterctx.View) (action.Bound, error) {
	return action.Func{ActionName: s.Name(), Fn: func(_ context.Context) (fact.Facts, error) {
		return fact.Empty(), nil
	}}, nil
}

func noopAction(name string) action.Action {
	return &stubAction{Base: action.Base{
		ActionName:          name,
		EmissionDeclaration: emission.New(false),
	}}
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New(Params{
		Version: "v1",
		Phases:  mustPhases(t, "START"),
	})
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestNewRejectsMissingProcedureForPhase(t *testing.T) {
	phases := mustPhases(t, "START", "DONE")
	_, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "START",
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Noop")),
		},
	})
	if err == nil || !strings.Contains(err.Error(), "DONE") {
		t.Fatalf("expected error naming missing phase DONE, got %v", err)
	}
}

func TestNewRejectsTransitionDefaultUnknownPhase(t *testing.T) {
	phases := mustPhases(t, "START")
	_, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "NOWHERE",
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Noop")),
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown default phase")
	}
}

func TestNewRejectsNonDeterministicRules(t *testing.T) {
	phases := mustPhases(t, "START", "A", "B")
	whenAll := phase.KeySet("ready")
	_, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "START",
			Rules: []phase.Rule{
				{Enter: "A", WhenAll: whenAll},
				{Enter: "B", WhenAll: whenAll},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Noop")),
			"A":     procedure.NewTemplate("a", noopAction("Noop")),
			"B":     procedure.NewTemplate("b", noopAction("Noop")),
		},
	})
	if err == nil || !strings.Contains(err.Error(), "overlap") {
		t.Fatalf("expected overlap error, got %v", err)
	}
}

func TestNewRejectsControlPolicyKeyOverlap(t *testing.T) {
	phases := mustPhases(t, "START")
	_, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		ControlPolicy: policy.Control{
			CompletionKeys: phase.KeySet("done"),
			FailureKeys:    phase.KeySet("done"),
		},
		TransitionPolicy: policy.Transition{Default: "START"},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Noop")),
		},
	})
	if err == nil || !strings.Contains(err.Error(), "completion_keys") {
		t.Fatalf("expected completion/failure overlap error, got %v", err)
	}
}

func TestNewAcceptsValidSpec(t *testing.T) {
	phases := mustPhases(t, "START", "DONE")
	emitsDone := &stubAction{Base: action.Base{
		ActionName: "Finish",
		EmissionDeclaration: emission.New(true).
			Declare("done", emission.Leaf(fact.ScopeSession)),
	}}
	s, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		ControlPolicy: policy.Control{
			CompletionKeys: phase.KeySet("done"),
		},
		TransitionPolicy: policy.Transition{
			Default: "START",
			Rules: []phase.Rule{
				{Enter: "DONE", WhenAll: phase.KeySet("done")},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", emitsDone),
			"DONE":  procedure.NewTemplate("done", noopAction("Noop")),
		},
		ValidateEmissions: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "demo" {
		t.Fatalf("expected name demo, got %s", s.Name)
	}
}

func TestNewRejectsUndurableEmissionReferencedByPolicy(t *testing.T) {
	phases := mustPhases(t, "START", "DONE")
	emitsDone := &stubAction{Base: action.Base{
		ActionName: "Finish",
		EmissionDeclaration: emission.New(true).
			Declare("done", emission.Leaf(fact.ScopeIteration)),
	}}
	_, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		ControlPolicy: policy.Control{
			CompletionKeys: phase.KeySet("done"),
		},
		TransitionPolicy: policy.Transition{Default: "START"},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", emitsDone),
			"DONE":  procedure.NewTemplate("done", noopAction("Noop")),
		},
		ValidateEmissions: true,
	})
	if err == nil || !strings.Contains(err.Error(), "fact scope validation failed") {
		t.Fatalf("expected fact scope validation error, got %v", err)
	}
}
