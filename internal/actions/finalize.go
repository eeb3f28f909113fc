/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

// Finalize marks the task complete and emits a human-readable summary
// of the outcome.
type Finalize struct {
	action.Base
}

// NewFinalize returns a Finalize action template.
func NewFinalize() *Finalize {
	return &Finalize{
		Base: action.Base{
			ActionName: "Finalize",
			NeedsState: true,
			EmissionDeclaration: emission.New(true).
				Declare("task_complete", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)).
				Declare("final_summary", emission.Leaf(fact.ScopeIteration)),
		},
	}
}

// Materialize binds this action to the given iteration state.
func (fz *Finalize) Materialize(st *state.IterationState, _ iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", fz.Name())
	}
	return action.Func{
		ActionName: fz.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			var summary []string

			if planVal, ok := st.Value("plan"); ok {
				if plan, ok := planVal.(map[string]any); ok {
					if goal, ok := plan["summary"]; ok && goal != nil {
						summary = append(summary, fmt.Sprintf("Goal: %v", goal))
					}
				}
			}

			if passed, _ := st.Get("validation_passed", false).(bool); passed {
				summary = append(summary, "Status: Refactoring step completed successfully.")
			} else {
				summary = append(summary, "Status: Task completed with unresolved issues.")
			}

			if errsVal, ok := st.Value("validation_errors"); ok {
				if errs, ok := errsVal.([]string); ok && len(errs) > 0 {
					summary = append(summary, "Validation errors:")
					for _, e := range errs {
						summary = append(summary, fmt.Sprintf("- %s", e))
					}
				}
			}

			if patchSummary, ok := st.Value("patch_summary"); ok {
				summary = append(summary, fmt.Sprintf("Patch: %v", patchSummary))
			}

			finalSummary := "Task completed."
			if len(summary) > 0 {
				finalSummary = strings.Join(summary, "\n")
			}

			return fz.Emits().Build(map[string]any{
				"task_complete": true,
				"final_summary": finalSummary,
			})
		},
	}, nil
}
