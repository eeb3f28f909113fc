/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slaterhq/slater/internal/phase"
)

// Describe renders a human-readable summary of the spec: its phases,
// the procedure bound to each, and the rules governing transitions
// between them. Intended for `slater describe` and for agent authors
// sanity-checking a spec before a run.
func (s *AgentSpec) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Agent: %s (%s)\n", s.Name, s.Version)
	fmt.Fprintf(&b, "Phases: %d\n", s.Phases.Len())

	for _, p := range s.Phases.Members() {
		tmpl, ok := s.Procedures[p]
		fmt.Fprintf(&b, "\n[%s]\n", p)
		if !ok {
			b.WriteString("  (no procedure bound)\n")
			continue
		}
		for _, a := range tmpl.Actions() {
			fmt.Fprintf(&b, "  - %s\n", a.Name())
		}
	}

	b.WriteString("\nTransitions:\n")
	for _, r := range s.TransitionPolicy.Rules {
		fmt.Fprintf(&b, "  -> %s when_all=%v when_any=%v when_none=%v\n",
			r.Enter, sortedKeys(r.WhenAll), sortedKeys(r.WhenAny), sortedKeys(r.WhenNone))
	}
	fmt.Fprintf(&b, "  default -> %s\n", s.TransitionPolicy.Default)

	b.WriteString("\nControl:\n")
	fmt.Fprintf(&b, "  completion_keys=%v\n", sortedKeys(s.ControlPolicy.CompletionKeys))
	fmt.Fprintf(&b, "  failure_keys=%v\n", sortedKeys(s.ControlPolicy.FailureKeys))
	fmt.Fprintf(&b, "  user_required_keys=%v\n", sortedKeys(s.ControlPolicy.UserRequiredKeys))
	fmt.Fprintf(&b, "  required_state_keys=%v\n", sortedKeys(s.ControlPolicy.RequiredStateKeys))

	return b.String()
}

// ToMermaid renders the spec's phase graph as a Mermaid state diagram,
// for embedding in docs or rendering in a browser. Phases with no
// outgoing Rule fall through to the transition policy's default.
func (s *AgentSpec) ToMermaid() string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")

	members := s.Phases.Members()
	sorted := make([]phase.Phase, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, p := range sorted {
		fmt.Fprintf(&b, "    %s\n", p)
	}

	for _, r := range s.TransitionPolicy.Rules {
		label := transitionLabel(r)
		for _, p := range sorted {
			if p == r.Enter {
				continue
			}
			fmt.Fprintf(&b, "    %s --> %s: %s\n", p, r.Enter, label)
		}
	}

	fmt.Fprintf(&b, "    [*] --> %s\n", s.TransitionPolicy.Default)

	return b.String()
}

func transitionLabel(r phase.Rule) string {
	var parts []string
	if len(r.WhenAll) > 0 {
		parts = append(parts, fmt.Sprintf("all(%s)", strings.Join(sortedKeys(r.WhenAll), ",")))
	}
	if len(r.WhenAny) > 0 {
		parts = append(parts, fmt.Sprintf("any(%s)", strings.Join(sortedKeys(r.WhenAny), ",")))
	}
	if len(r.WhenNone) > 0 {
		parts = append(parts, fmt.Sprintf("none(%s)", strings.Join(sortedKeys(r.WhenNone), ",")))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " ")
}
