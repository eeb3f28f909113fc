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
	"os"
	"path/filepath"
	"strings"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

const patchFileName = ".slater_plan.md"

// ApplyPatch applies a refactoring plan to the repository. The
// prototype behavior materializes the current plan as a markdown file
// in the repo root rather than touching source files directly.
type ApplyPatch struct {
	action.Base
}

// NewApplyPatch returns an ApplyPatch action template.
func NewApplyPatch() *ApplyPatch {
	return &ApplyPatch{
		Base: action.Base{
			ActionName: "ApplyPatch",
			NeedsState: true,
			EmissionDeclaration: emission.New(true).
				Declare("patch_applied", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)).
				Declare("patch_summary", emission.Optional(fact.ScopeSession)).
				Declare("patch_errors", emission.Optional(fact.ScopeSession).WithKind(fact.KindDiagnostic)),
		},
	}
}

// Materialize binds this action to the given iteration state.
func (ap *ApplyPatch) Materialize(st *state.IterationState, _ iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", ap.Name())
	}
	return action.Func{
		ActionName: ap.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			repoRootVal, ok := st.Value("repo_root")
			if !ok {
				return nil, fmt.Errorf("%s requires repo_root in state", ap.Name())
			}
			repoRoot, _ := repoRootVal.(string)

			planVal, _ := st.Value("plan")
			plan, _ := planVal.(map[string]any)

			patchFile := filepath.Join(repoRoot, patchFileName)

			lines := []string{"# Slater Refactoring Plan", ""}
			if summary, ok := plan["summary"]; ok && summary != nil {
				lines = append(lines, fmt.Sprintf("## Goal\n%v\n", summary))
			}
			if stepsVal, ok := plan["steps"]; ok {
				if steps, ok := stepsVal.([]string); ok && len(steps) > 0 {
					lines = append(lines, "## Proposed Steps")
					for i, step := range steps {
						lines = append(lines, fmt.Sprintf("%d. %s", i+1, step))
					}
				}
			}

			if err := os.WriteFile(patchFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
				return ap.Emits().Build(map[string]any{
					"patch_applied": false,
					"patch_errors":  []string{err.Error()},
				})
			}

			return ap.Emits().Build(map[string]any{
				"patch_applied": true,
				"patch_summary": fmt.Sprintf("Wrote refactoring plan to %s", patchFileName),
			})
		},
	}, nil
}
