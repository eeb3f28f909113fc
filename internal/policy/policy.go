/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package policy defines the two policies an AgentController consults
// at every iteration boundary: ControlPolicy (completion/failure/pause)
// and TransitionPolicy (deterministic phase derivation).
//
// Other policies are anticipated but not implemented: a ValidationPolicy
// for fact schemas and immutability rules, an ExecutionPolicy for retry
// limits and timeouts, an EscalationPolicy for stuck detection, an
// AuditPolicy for retention and redaction, and a RecoveryPolicy for
// restart semantics.
package policy

import (
	"fmt"

	"github.com/slaterhq/slater/internal/phase"
)

// Control declares the fact-key sets an AgentController checks, in
// precedence order, at the end of every iteration: completion beats
// failure beats user-pause beats state-pause.
type Control struct {
	// RequiredStateKeys must all be present to proceed autonomously.
	RequiredStateKeys map[string]struct{}

	// UserRequiredKeys must all be present, or the controller pauses
	// awaiting user input.
	UserRequiredKeys map[string]struct{}

	// CompletionKeys signal task completion when any is present.
	CompletionKeys map[string]struct{}

	// FailureKeys signal irrecoverable failure when any is present.
	FailureKeys map[string]struct{}
}

// Outcome is the terminal or continuing result of evaluating a Control
// policy against a set of durable fact keys.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeFailed      Outcome = "failed"
	OutcomePausedUser  Outcome = "paused_user"
	OutcomePausedState Outcome = "paused_state"
	OutcomeAdvance     Outcome = "advance"
)

// Evaluate checks durableKeys against c in completion > failure >
// user-pause > state-pause precedence, returning OutcomeAdvance when
// none apply (the controller should proceed to TransitionPolicy).
func (c Control) Evaluate(durableKeys map[string]struct{}) Outcome {
	if intersects(c.CompletionKeys, durableKeys) {
		return OutcomeCompleted
	}
	if intersects(c.FailureKeys, durableKeys) {
		return OutcomeFailed
	}
	if missingAny(c.UserRequiredKeys, durableKeys) {
		return OutcomePausedUser
	}
	if missingAny(c.RequiredStateKeys, durableKeys) {
		return OutcomePausedState
	}
	return OutcomeAdvance
}

func intersects(want, have map[string]struct{}) bool {
	for k := range want {
		if _, ok := have[k]; ok {
			return true
		}
	}
	return false
}

func missingAny(want, have map[string]struct{}) bool {
	for k := range want {
		if _, ok := have[k]; !ok {
			return true
		}
	}
	return false
}

// ErrNoTransition indicates no Rule matched the current fact keys and
// none of the rules applies — the controller should pause rather than
// raise, since this is a normal "no further progress possible" state.
var ErrNoTransition = fmt.Errorf("no phase transition possible")

// Transition holds the Rules an AgentController consults to derive the
// next Phase from durable fact keys, plus the default Phase used before
// any Rule has matched.
type Transition struct {
	Rules   []phase.Rule
	Default phase.Phase
}

// DerivePhase returns the single Rule-matched Phase for factKeys. It
// returns ErrNoTransition if no Rule matches, and an error if more than
// one Rule matches (phase derivation must be deterministic).
func (t Transition) DerivePhase(factKeys map[string]struct{}) (phase.Phase, error) {
	var matches []phase.Rule
	for _, r := range t.Rules {
		if r.Matches(factKeys) {
			matches = append(matches, r)
		}
	}

	if len(matches) == 0 {
		return "", ErrNoTransition
	}

	if len(matches) > 1 {
		entered := make([]phase.Phase, len(matches))
		for i, m := range matches {
			entered[i] = m.Enter
		}
		return "", fmt.Errorf("non-deterministic phase derivation: %v", entered)
	}

	return matches[0].Enter, nil
}
