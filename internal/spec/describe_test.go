/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package spec

import (
	"strings"
	"testing"

	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
)

func TestDescribeIncludesPhasesAndActions(t *testing.T) {
	phases := mustPhases(t, "START", "DONE")
	s, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "START",
			Rules: []phase.Rule{
				{Enter: "DONE", WhenAll: phase.KeySet("done")},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Gather")),
			"DONE":  procedure.NewTemplate("done", noopAction("Finish")),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := s.Describe()
	for _, want := range []string{"demo", "START", "DONE", "Gather", "Finish"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected Describe() output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestToMermaidRendersTransitions(t *testing.T) {
	phases := mustPhases(t, "START", "DONE")
	s, err := New(Params{
		Name:    "demo",
		Version: "v1",
		Phases:  phases,
		TransitionPolicy: policy.Transition{
			Default: "START",
			Rules: []phase.Rule{
				{Enter: "DONE", WhenAll: phase.KeySet("done")},
			},
		},
		Procedures: map[phase.Phase]procedure.Template{
			"START": procedure.NewTemplate("start", noopAction("Gather")),
			"DONE":  procedure.NewTemplate("done", noopAction("Finish")),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := s.ToMermaid()
	if !strings.Contains(out, "stateDiagram-v2") {
		t.Fatalf("expected mermaid header, got:\n%s", out)
	}
	if !strings.Contains(out, "START --> DONE") {
		t.Fatalf("expected START --> DONE transition, got:\n%s", out)
	}
}
