/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package spec defines AgentSpec: a versioned, immutable description
// of an agent's behavior, validated at construction time so a broken
// agent definition fails before its first iteration instead of
// mid-run.
package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
	"github.com/slaterhq/slater/internal/validation"
)

// AgentSpec is the declarative, validated description of an agent.
type AgentSpec struct {
	Name    string
	Version string

	Phases           phase.Set
	ControlPolicy    policy.Control
	TransitionPolicy policy.Transition
	Procedures       map[phase.Phase]procedure.Template

	// ValidateEmissions enables the fact-scope coherence check. Leave
	// true unless an agent intentionally references facts no action
	// declares yet (under active development).
	ValidateEmissions bool
}

// Params is the input to New; a plain struct keeps the constructor's
// validation order legible without a long positional argument list.
type Params struct {
	Name    string
	Version string

	Phases           phase.Set
	ControlPolicy    policy.Control
	TransitionPolicy policy.Transition
	Procedures       map[phase.Phase]procedure.Template

	ValidateEmissions bool
}

// New validates params in the fixed order every Slater agent has
// always been validated in — name/version, phases, procedures,
// transition policy (including rule determinism), control policy, and
// finally (if enabled) fact-scope coherence — and returns the
// resulting AgentSpec or the first validation failure.
func New(p Params) (*AgentSpec, error) {
	s := &AgentSpec{
		Name:              p.Name,
		Version:           p.Version,
		Phases:            p.Phases,
		ControlPolicy:     p.ControlPolicy,
		TransitionPolicy:  p.TransitionPolicy,
		Procedures:        p.Procedures,
		ValidateEmissions: p.ValidateEmissions,
	}

	if err := s.validateNameAndVersion(); err != nil {
		return nil, err
	}
	if err := s.validatePhases(); err != nil {
		return nil, err
	}
	if err := s.validateProcedures(); err != nil {
		return nil, err
	}
	if err := s.validateTransitionPolicy(); err != nil {
		return nil, err
	}
	if err := s.validateControlPolicy(); err != nil {
		return nil, err
	}
	if s.ValidateEmissions {
		if err := s.validateFactScopes(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Describe renders a human-readable summary of an AgentSpec: its
// phases, the procedure bound to each, and the control/transition
// policies governing it. Used by `slater describe`.
func (s *AgentSpec) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AgentSpec %s (version %s)\n", s.Name, s.Version)
	fmt.Fprintf(&b, "  default phase: %s\n", s.TransitionPolicy.Default)
	fmt.Fprintf(&b, "  phases (%d):\n", s.Phases.Len())
	for _, p := range s.Phases.Members() {
		tmpl, ok := s.Procedures[p]
		if !ok {
			fmt.Fprintf(&b, "    - %s: (no procedure bound)\n", p)
			continue
		}
		fmt.Fprintf(&b, "    - %s: %s\n", p, tmpl.String())
	}
	fmt.Fprintf(&b, "  completion keys: %s\n", sortedKeys(s.ControlPolicy.CompletionKeys))
	fmt.Fprintf(&b, "  failure keys: %s\n", sortedKeys(s.ControlPolicy.FailureKeys))
	fmt.Fprintf(&b, "  user-required keys: %s\n", sortedKeys(s.ControlPolicy.UserRequiredKeys))
	fmt.Fprintf(&b, "  required state keys: %s\n", sortedKeys(s.ControlPolicy.RequiredStateKeys))
	return b.String()
}

// Mermaid renders the TransitionPolicy's rules as a Mermaid state
// diagram — the edges are labeled with the WhenAll/WhenNone fact keys
// that drive entry into each phase.
func (s *AgentSpec) Mermaid() string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&b, "    [*] --> %s\n", s.TransitionPolicy.Default)
	for _, rule := range s.TransitionPolicy.Rules {
		label := strings.Join(sortedKeys(rule.WhenAll), ",")
		if len(rule.WhenNone) > 0 {
			label += " !" + strings.Join(sortedKeys(rule.WhenNone), ",!")
		}
		fmt.Fprintf(&b, "    [*] --> %s : %s\n", rule.Enter, label)
	}
	for _, key := range sortedKeys(s.ControlPolicy.CompletionKeys) {
		fmt.Fprintf(&b, "    note right of %s : completes on %s\n", s.TransitionPolicy.Default, key)
	}
	return b.String()
}

func (s *AgentSpec) validateNameAndVersion() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("AgentSpec.Name cannot be empty")
	}
	if strings.TrimSpace(s.Version) == "" {
		return fmt.Errorf("AgentSpec.Version cannot be empty")
	}
	return nil
}

func (s *AgentSpec) validatePhases() error {
	if s.Phases.Len() == 0 {
		return fmt.Errorf("AgentSpec %q must define at least one Phase", s.Name)
	}
	return nil
}

func (s *AgentSpec) validateProcedures() error {
	var missing []phase.Phase
	for _, p := range s.Phases.Members() {
		if _, ok := s.Procedures[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("AgentSpec %q missing Procedures for Phases: %v", s.Name, missing)
	}
	// Extra procedures for undeclared phases are a design smell, not a
	// construction-time error — callers can surface them via Describe.
	return nil
}

func (s *AgentSpec) validateTransitionPolicy() error {
	if !s.Phases.Contains(s.TransitionPolicy.Default) {
		return fmt.Errorf("TransitionPolicy.Default references unknown Phase: %s", s.TransitionPolicy.Default)
	}

	for i, rule := range s.TransitionPolicy.Rules {
		if !s.Phases.Contains(rule.Enter) {
			return fmt.Errorf("PhaseRule[%d] references unknown Phase: %s", i, rule.Enter)
		}
	}

	return s.checkRuleDeterminism()
}

// checkRuleDeterminism rejects two rules with identical when_all sets
// and no when_any/when_none to disambiguate them — a simplified
// overlap check, not full SAT-solving coverage.
func (s *AgentSpec) checkRuleDeterminism() error {
	rules := s.TransitionPolicy.Rules
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			a, b := rules[i], rules[j]
			if !sameKeySet(a.WhenAll, b.WhenAll) {
				continue
			}
			if len(a.WhenAny) == 0 && len(a.WhenNone) == 0 && len(b.WhenAny) == 0 && len(b.WhenNone) == 0 {
				return fmt.Errorf(
					"PhaseRules overlap (non-deterministic):\n  Rule %d: enter=%s, when_all=%v\n  Rule %d: enter=%s, when_all=%v",
					i, a.Enter, sortedKeys(a.WhenAll), j, b.Enter, sortedKeys(b.WhenAll),
				)
			}
		}
	}
	return nil
}

func (s *AgentSpec) validateControlPolicy() error {
	overlap := intersectKeys(s.ControlPolicy.CompletionKeys, s.ControlPolicy.FailureKeys)
	if len(overlap) > 0 {
		return fmt.Errorf("ControlPolicy has keys in both completion_keys and failure_keys: %v", sortedKeys(overlap))
	}
	return nil
}

func (s *AgentSpec) validateFactScopes() error {
	issues := validation.ValidateFactScopes(s.Procedures, s.TransitionPolicy, s.ControlPolicy)

	var errs []validation.Issue
	for _, issue := range issues {
		if issue.Severity == validation.SeverityError {
			errs = append(errs, issue)
		}
	}
	if len(errs) > 0 {
		return &validation.ScopeError{Issues: issues}
	}

	return nil
}

func sameKeySet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func intersectKeys(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
