/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package policy

import (
	"errors"
	"testing"

	"github.com/slaterhq/slater/internal/phase"
)

func TestControlEvaluatePrecedence(t *testing.T) {
	c := Control{
		RequiredStateKeys: phase.KeySet("context_ready"),
		UserRequiredKeys:  phase.KeySet("missing_requirements"),
		CompletionKeys:    phase.KeySet("task_complete"),
		FailureKeys:       phase.KeySet("blocked"),
	}

	// completion beats everything, even if failure keys are also present
	out := c.Evaluate(phase.KeySet("task_complete", "blocked"))
	if out != OutcomeCompleted {
		t.Fatalf("expected completion to take precedence, got %s", out)
	}

	out = c.Evaluate(phase.KeySet("blocked"))
	if out != OutcomeFailed {
		t.Fatalf("expected failure outcome, got %s", out)
	}

	out = c.Evaluate(phase.KeySet("context_ready"))
	if out != OutcomePausedUser {
		t.Fatalf("expected user-pause outcome when user_required_keys missing, got %s", out)
	}

	out = c.Evaluate(phase.KeySet("context_ready", "missing_requirements"))
	if out != OutcomeAdvance {
		t.Fatalf("expected advance outcome, got %s", out)
	}
}

func TestTransitionDerivePhaseNoMatch(t *testing.T) {
	tr := Transition{Default: "START"}
	_, err := tr.DerivePhase(phase.KeySet("nothing_relevant"))
	if !errors.Is(err, ErrNoTransition) {
		t.Fatalf("expected ErrNoTransition, got %v", err)
	}
}

func TestTransitionDerivePhaseNonDeterministic(t *testing.T) {
	tr := Transition{
		Rules: []phase.Rule{
			{Enter: "A", WhenAll: phase.KeySet("x")},
			{Enter: "B", WhenAll: phase.KeySet("x")},
		},
	}
	_, err := tr.DerivePhase(phase.KeySet("x"))
	if err == nil {
		t.Fatal("expected error for overlapping rules")
	}
}

func TestTransitionDerivePhaseSingleMatch(t *testing.T) {
	tr := Transition{
		Rules: []phase.Rule{
			{Enter: "DONE", WhenAll: phase.KeySet("task_complete")},
		},
	}
	p, err := tr.DerivePhase(phase.KeySet("task_complete"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "DONE" {
		t.Fatalf("expected DONE, got %s", p)
	}
}
