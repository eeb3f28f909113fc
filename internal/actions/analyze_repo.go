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
	"sort"
	"strings"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

// AnalyzeRepo interprets the repository structure discovered by
// GatherContext and derives high-level structural signals. It performs
// no filesystem access and relies entirely on facts already in state.
type AnalyzeRepo struct {
	action.Base
}

// NewAnalyzeRepo returns an AnalyzeRepo action template.
func NewAnalyzeRepo() *AnalyzeRepo {
	repoGroup := emission.New(true).
		Declare("file_count", emission.Leaf(fact.ScopeIteration)).
		Declare("languages", emission.Leaf(fact.ScopeIteration)).
		Declare("has_tests", emission.Leaf(fact.ScopeIteration)).
		Declare("entrypoints", emission.Leaf(fact.ScopeIteration)).
		Declare("build_system", emission.Leaf(fact.ScopeIteration)).
		Declare("notes", emission.Leaf(fact.ScopeIteration))

	return &AnalyzeRepo{
		Base: action.Base{
			ActionName: "AnalyzeRepo",
			NeedsState: true,
			EmissionDeclaration: emission.New(true).
				Nest("repo", repoGroup).
				Declare("analysis_ready", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)),
		},
	}
}

// Materialize binds this action to the given iteration state.
func (a *AnalyzeRepo) Materialize(st *state.IterationState, _ iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", a.Name())
	}
	return action.Func{
		ActionName: a.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			repoTreeVal, ok := st.Value("repo_tree")
			if !ok {
				return nil, fmt.Errorf("%s requires repo_tree in state (run GatherContext first)", a.Name())
			}
			repoTree, _ := repoTreeVal.([]string)

			primaryLanguage, _ := st.Get("language", "").(string)
			buildSystem, _ := st.Get("build_system", "").(string)

			languages := map[string]struct{}{}
			for _, p := range repoTree {
				switch {
				case strings.HasSuffix(p, ".py"):
					languages["python"] = struct{}{}
				case strings.HasSuffix(p, ".ts"):
					languages["typescript"] = struct{}{}
				case strings.HasSuffix(p, ".js"):
					languages["javascript"] = struct{}{}
				case strings.HasSuffix(p, ".go"):
					languages["go"] = struct{}{}
				}
			}
			if len(languages) == 0 && primaryLanguage != "" {
				languages[primaryLanguage] = struct{}{}
			}

			hasTests := false
			for _, p := range repoTree {
				if strings.HasPrefix(p, "tests/") || strings.HasSuffix(p, "_test.py") || strings.HasSuffix(p, ".spec.ts") {
					hasTests = true
					break
				}
			}

			var entrypoints []string
			if _, ok := languages["python"]; ok {
				for _, candidate := range []string{"main.py", "app.py", "__main__.py"} {
					if contains(repoTree, candidate) {
						entrypoints = append(entrypoints, candidate)
					}
				}
			}
			_, hasJS := languages["javascript"]
			_, hasTS := languages["typescript"]
			if (hasJS || hasTS) && contains(repoTree, "package.json") {
				entrypoints = append(entrypoints, "package.json")
			}

			var notes []string
			if len(repoTree) > 500 {
				notes = append(notes, "Large repository; refactors should be incremental.")
			}
			if !hasTests {
				notes = append(notes, "No obvious test suite detected.")
			}
			if len(languages) > 1 {
				notes = append(notes, "Multiple languages detected.")
			}
			if buildSystem == "" {
				notes = append(notes, "Build system could not be confidently inferred.")
			}

			sortedLanguages := make([]string, 0, len(languages))
			for l := range languages {
				sortedLanguages = append(sortedLanguages, l)
			}
			sort.Strings(sortedLanguages)

			return a.Emits().Build(map[string]any{
				"repo": map[string]any{
					"file_count":   len(repoTree),
					"languages":    sortedLanguages,
					"has_tests":    hasTests,
					"entrypoints":  entrypoints,
					"build_system": buildSystem,
					"notes":        notes,
				},
				"analysis_ready": true,
			})
		},
	}, nil
}
