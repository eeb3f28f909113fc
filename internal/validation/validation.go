/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package validation cross-references policy requirements with action
// emissions to catch fact-scope bugs at AgentSpec construction time,
// before a single iteration runs.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
)

// Severity distinguishes a hard validation failure from an advisory
// finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single fact-scope validation finding.
type Issue struct {
	FactKey        string
	ExpectedScope  fact.Scope
	ActualScope    fact.Scope
	HasActual      bool
	EmittingAction string
	ReferencedBy   string
	Severity       Severity
	Message        string
}

func (i Issue) String() string {
	prefix := "ERROR"
	if i.Severity == SeverityWarning {
		prefix = "WARNING"
	}
	return fmt.Sprintf("%s: %s", prefix, i.Message)
}

// ScopeError is returned when fact-scope validation finds at least one
// error-severity Issue.
type ScopeError struct {
	Issues []Issue
}

func (e *ScopeError) Error() string {
	var b strings.Builder
	b.WriteString("fact scope validation failed:\n")
	for _, issue := range e.Issues {
		b.WriteString("  ")
		b.WriteString(issue.String())
		b.WriteString("\n")
	}
	errs, warns := countBySeverity(e.Issues)
	fmt.Fprintf(&b, "\nfound %d error(s), %d warning(s)", errs, warns)
	return b.String()
}

func countBySeverity(issues []Issue) (errs, warns int) {
	for _, i := range issues {
		if i.Severity == SeverityError {
			errs++
		} else {
			warns++
		}
	}
	return
}

// emissionInfo records which action emits a key and with what scope.
type emissionInfo struct {
	action string
	scope  fact.Scope
}

// ValidateFactScopes checks that every fact key referenced by a
// transitionPolicy rule's WhenAll or WhenNone set, or by controlPolicy's
// key sets, is emitted with durable (session or persistent) scope by
// some action in procedures. WhenAny keys are not checked.
// A reference to an undeclared key is a warning; a reference to a key
// declared with iteration scope is an error (it can never be true at a
// durable-fact check, so it signals a design bug, not a runtime one).
func ValidateFactScopes(procedures map[phase.Phase]procedure.Template, transitionPolicy policy.Transition, controlPolicy policy.Control) []Issue {
	emissions := collectEmissions(procedures)

	var issues []Issue

	for _, rule := range transitionPolicy.Rules {
		for key := range rule.WhenAll {
			issues = append(issues, checkFactScope(key, emissions, fmt.Sprintf("PhaseRule(enter=%s).when_all", rule.Enter))...)
		}
		for key := range rule.WhenNone {
			issues = append(issues, checkFactScope(key, emissions, fmt.Sprintf("PhaseRule(enter=%s).when_none", rule.Enter))...)
		}
	}

	for key := range controlPolicy.CompletionKeys {
		issues = append(issues, checkFactScope(key, emissions, "ControlPolicy.completion_keys")...)
	}
	for key := range controlPolicy.FailureKeys {
		issues = append(issues, checkFactScope(key, emissions, "ControlPolicy.failure_keys")...)
	}
	for key := range controlPolicy.RequiredStateKeys {
		issues = append(issues, checkFactScope(key, emissions, "ControlPolicy.required_state_keys")...)
	}
	for key := range controlPolicy.UserRequiredKeys {
		issues = append(issues, checkFactScope(key, emissions, "ControlPolicy.user_required_keys")...)
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].FactKey < issues[j].FactKey })
	return issues
}

func collectEmissions(procedures map[phase.Phase]procedure.Template) map[string]emissionInfo {
	emissions := make(map[string]emissionInfo)
	for _, template := range procedures {
		for _, a := range template.Actions() {
			spec := a.Emits()
			if spec == nil {
				continue
			}
			for key, scope := range spec.ToDict() {
				emissions[key] = emissionInfo{action: a.Name(), scope: scope}
			}
		}
	}
	return emissions
}

func checkFactScope(key string, emissions map[string]emissionInfo, referencedBy string) []Issue {
	info, ok := emissions[key]
	if !ok {
		return []Issue{{
			FactKey:      key,
			ReferencedBy: referencedBy,
			Severity:     SeverityWarning,
			Message:      fmt.Sprintf("fact %q referenced by %s is not declared in any action's emissions", key, referencedBy),
		}}
	}

	if info.scope == fact.ScopeIteration {
		return []Issue{{
			FactKey:        key,
			ExpectedScope:  fact.ScopeSession,
			ActualScope:    info.scope,
			HasActual:      true,
			EmittingAction: info.action,
			ReferencedBy:   referencedBy,
			Severity:       SeverityError,
			Message: fmt.Sprintf(
				"fact %q emitted by %s has scope=%q but is referenced by %s (requires durable scope)",
				key, info.action, info.scope, referencedBy,
			),
		}}
	}

	return nil
}

// CheckEmissionDrift compares an action's declared emissions against
// the facts it actually produced, returning one Issue per mismatch.
// Call this after an action executes, in development or test, to catch
// drift between declared and actual emissions.
func CheckEmissionDrift(actionName string, declared map[string]fact.Scope, actual fact.Facts) []Issue {
	var issues []Issue

	actualScopes := make(map[string]fact.Scope)
	for _, entry := range actual.IterFacts() {
		actualScopes[entry.Key] = entry.Fact.Scope
	}

	for key, declaredScope := range declared {
		actualScope, present := actualScopes[key]
		if !present {
			issues = append(issues, Issue{
				FactKey:        key,
				ExpectedScope:  declaredScope,
				EmittingAction: actionName,
				Severity:       SeverityWarning,
				Message:        fmt.Sprintf("%s declares emission %q but didn't emit it", actionName, key),
			})
			continue
		}
		if actualScope != declaredScope {
			issues = append(issues, Issue{
				FactKey:        key,
				ExpectedScope:  declaredScope,
				ActualScope:    actualScope,
				HasActual:      true,
				EmittingAction: actionName,
				Severity:       SeverityWarning,
				Message: fmt.Sprintf(
					"%s declares emission %q=%q but emitted with scope=%q",
					actionName, key, declaredScope, actualScope,
				),
			})
		}
	}

	for key, actualScope := range actualScopes {
		if _, declaredOK := declared[key]; !declaredOK {
			issues = append(issues, Issue{
				FactKey:        key,
				ActualScope:    actualScope,
				HasActual:      true,
				EmittingAction: actionName,
				Severity:       SeverityWarning,
				Message:        fmt.Sprintf("%s emitted %q but doesn't declare it in its emissions", actionName, key),
			})
		}
	}

	return issues
}
