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

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

// Validate checks the outcome of the most recent patch application.
// The prototype behavior confirms the patch artifact exists and is
// readable; beyond prototype this could run tests, lint, or solicit
// human feedback.
type Validate struct {
	action.Base
}

// NewValidate returns a Validate action template.
func NewValidate() *Validate {
	return &Validate{
		Base: action.Base{
			ActionName: "Validate",
			NeedsState: true,
			EmissionDeclaration: emission.New(true).
				Declare("validation_passed", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)).
				Declare("validation_errors", emission.Optional(fact.ScopeSession).WithKind(fact.KindDiagnostic)),
		},
	}
}

// Materialize binds this action to the given iteration state.
func (v *Validate) Materialize(st *state.IterationState, _ iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", v.Name())
	}
	return action.Func{
		ActionName: v.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			repoRootVal, _ := st.Value("repo_root")
			repoRoot, _ := repoRootVal.(string)

			patchApplied, _ := st.Get("patch_applied", false).(bool)
			patchErrorsVal, _ := st.Value("patch_errors")
			patchErrors, _ := patchErrorsVal.([]string)

			var errs []string
			if !patchApplied {
				errs = append(errs, "Patch was not applied.")
			}

			patchFile := filepath.Join(repoRoot, patchFileName)
			if patchApplied {
				info, err := os.Stat(patchFile)
				switch {
				case os.IsNotExist(err):
					errs = append(errs, fmt.Sprintf("Expected patch artifact %q does not exist.", patchFileName))
				case err != nil:
					errs = append(errs, fmt.Sprintf("Patch artifact is unreadable: %v", err))
				case info.IsDir():
					errs = append(errs, "Patch artifact exists but is not a file.")
				default:
					if _, err := os.ReadFile(patchFile); err != nil {
						errs = append(errs, fmt.Sprintf("Patch artifact is unreadable: %v", err))
					}
				}
			}

			errs = append(errs, patchErrors...)

			if len(errs) > 0 {
				return v.Emits().Build(map[string]any{
					"validation_passed": false,
					"validation_errors": errs,
				})
			}

			return v.Emits().Build(map[string]any{
				"validation_passed": true,
			})
		},
	}, nil
}
