/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package actions provides a small, concrete set of demo actions
// (repository discovery, analysis, planning, patching, validation,
// finalization) that exercise the Action contract end to end.
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

var ignoredDirs = map[string]struct{}{
	".git": {}, "__pycache__": {}, ".venv": {}, "node_modules": {},
}

// GatherContext discovers baseline repository context required for
// agent operation: fact gathering, not analysis or planning.
type GatherContext struct {
	action.Base
}

// NewGatherContext returns a GatherContext action template.
func NewGatherContext() *GatherContext {
	return &GatherContext{
		Base: action.Base{
			ActionName: "GatherContext",
			NeedsState: true,
			EmissionDeclaration: emission.New(true).
				Declare("repo_root", emission.Leaf(fact.ScopeIteration)).
				Declare("repo_tree", emission.Leaf(fact.ScopeIteration)).
				Declare("language", emission.Leaf(fact.ScopeIteration)).
				Declare("build_system", emission.Leaf(fact.ScopeIteration)).
				Declare("context_ready", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)),
		},
	}
}

// Materialize binds this action to the given iteration state.
func (g *GatherContext) Materialize(st *state.IterationState, _ iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", g.Name())
	}
	return action.Func{
		ActionName: g.Name(),
		Fn: func(_ context.Context) (fact.Facts, error) {
			repoRoot, _ := st.Value("repo_root")
			root, _ := repoRoot.(string)
			if root == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return nil, fmt.Errorf("determining repo root: %w", err)
				}
				root = cwd
			}

			if _, err := os.Stat(root); err != nil {
				return nil, fmt.Errorf("repo root does not exist: %s", root)
			}

			var repoTree []string
			err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if _, skip := ignoredDirs[d.Name()]; skip && path != root {
						return filepath.SkipDir
					}
					return nil
				}
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				repoTree = append(repoTree, rel)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walking repo tree: %w", err)
			}

			var language string
			switch {
			case anySuffix(repoTree, ".py"):
				language = "python"
			case anySuffix(repoTree, ".ts") || anySuffix(repoTree, ".js"):
				language = "javascript"
			case anySuffix(repoTree, ".go"):
				language = "go"
			}

			var buildSystem string
			switch {
			case contains(repoTree, "pyproject.toml") || contains(repoTree, "setup.py"):
				buildSystem = "python"
			case contains(repoTree, "package.json"):
				buildSystem = "node"
			case contains(repoTree, "go.mod"):
				buildSystem = "go"
			}

			return g.Emits().Build(map[string]any{
				"repo_root":     root,
				"repo_tree":     repoTree,
				"language":      language,
				"build_system":  buildSystem,
				"context_ready": true,
			})
		},
	}, nil
}

func anySuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func contains(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
