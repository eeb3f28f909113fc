/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package demoagent builds the reference AgentSpec shipped with slater:
// a repo-refactoring agent that gathers context, analyzes the repo,
// proposes and applies a patch, validates it, and finalizes. It's the
// spec `slater run`/`validate`/`describe` operate on absent a
// caller-supplied spec.
package demoagent

import (
	"fmt"

	"github.com/slaterhq/slater/internal/actions"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/procedure"
	"github.com/slaterhq/slater/internal/spec"
)

// Phase names for the reference agent, in the order original_source/slater
// declares them.
const (
	PhaseNeedsContext       = phase.Phase("NEEDS_CONTEXT")
	PhaseReadyToContinue    = phase.Phase("READY_TO_CONTINUE")
	PhaseProcedureSucceeded = phase.Phase("PROCEDURE_SUCCEEDED")
	PhaseProcedureFailed    = phase.Phase("PROCEDURE_FAILED")
	PhaseTaskComplete       = phase.Phase("TASK_COMPLETE")
)

// New builds the reference AgentSpec.
func New() (*spec.AgentSpec, error) {
	phases, err := phase.NewSet(
		string(PhaseNeedsContext),
		string(PhaseReadyToContinue),
		string(PhaseProcedureSucceeded),
		string(PhaseProcedureFailed),
		string(PhaseTaskComplete),
	)
	if err != nil {
		return nil, fmt.Errorf("building demo agent phases: %w", err)
	}

	controlPolicy := policy.Control{
		RequiredStateKeys: phase.KeySet("context_ready", "analysis_ready"),
		UserRequiredKeys:  phase.KeySet(),
		CompletionKeys:    phase.KeySet("task_complete"),
		FailureKeys:       phase.KeySet("blocked"),
	}

	transitionPolicy := policy.Transition{
		Rules: []phase.Rule{
			{
				Enter:   PhaseNeedsContext,
				WhenAll: phase.KeySet("context_required"),
			},
			{
				Enter:    PhaseReadyToContinue,
				WhenAll:  phase.KeySet("analysis_ready", "context_ready"),
				WhenNone: phase.KeySet("plan_ready"),
			},
			{
				Enter:    PhaseProcedureSucceeded,
				WhenAll:  phase.KeySet("plan_ready"),
				WhenNone: phase.KeySet("validation_passed"),
			},
			{
				Enter:   PhaseProcedureFailed,
				WhenAll: phase.KeySet("blocked"),
			},
			{
				Enter:   PhaseTaskComplete,
				WhenAll: phase.KeySet("validation_passed"),
			},
		},
		Default: PhaseNeedsContext,
	}

	procedures := map[phase.Phase]procedure.Template{
		PhaseNeedsContext: procedure.NewTemplate("discover_and_analyze",
			actions.NewGatherContext(),
			actions.NewAnalyzeRepo(),
		),
		PhaseReadyToContinue: procedure.NewTemplate("plan_next_step",
			actions.NewProposePlan(),
		),
		PhaseProcedureSucceeded: procedure.NewTemplate("execute_and_validate",
			actions.NewApplyPatch(),
			actions.NewValidate(),
		),
		// AnalyzeRepo is intentionally reused here to re-ground planning
		// in current facts before proposing again.
		PhaseProcedureFailed: procedure.NewTemplate("reflect_and_replan",
			actions.NewAnalyzeRepo(),
			actions.NewProposePlan(),
		),
		PhaseTaskComplete: procedure.NewTemplate("finalize_task",
			actions.NewFinalize(),
		),
	}

	return spec.New(spec.Params{
		Name:              "slater-refactor-agent",
		Version:           "0.1.0",
		Phases:            phases,
		ControlPolicy:     controlPolicy,
		TransitionPolicy:  transitionPolicy,
		Procedures:        procedures,
		ValidateEmissions: true,
	})
}
