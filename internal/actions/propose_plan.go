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

// ProposePlan produces or updates a refactoring plan based on the
// agent's goal and any available repository analysis.
type ProposePlan struct {
	action.Base
}

// NewProposePlan returns a ProposePlan action template.
func NewProposePlan() *ProposePlan {
	return &ProposePlan{
		Base: action.Base{
			ActionName:   "ProposePlan",
			NeedsState:   true,
			NeedsContext: true,
			EmissionDeclaration: emission.New(true).
				Declare("plan", emission.Leaf(fact.ScopeSession)).
				Declare("plan_ready", emission.Leaf(fact.ScopeSession).WithKind(fact.KindProgress)),
		},
	}
}

// Materialize binds this action to the given iteration state and
// context view.
func (p *ProposePlan) Materialize(st *state.IterationState, ctx iterctx.View) (action.Bound, error) {
	if st == nil {
		return nil, fmt.Errorf("%s requires state", p.Name())
	}
	llm := ctx.LLM()
	if llm == nil {
		return nil, fmt.Errorf("%s requires an LLM client in context", p.Name())
	}

	return action.Func{
		ActionName: p.Name(),
		Fn: func(execCtx context.Context) (fact.Facts, error) {
			goal, ok := st.Value("goal")
			if !ok {
				return nil, fmt.Errorf("%s requires goal in state", p.Name())
			}
			analysis, _ := st.Value("repo")

			messages := []iterctx.Message{
				{
					Role: "system",
					Content: "You are a software refactoring assistant. " +
						"Your task is to propose a clear, step-by-step refactoring plan. " +
						"Do not write code. Do not speculate beyond the repository context.",
				},
				{Role: "user", Content: fmt.Sprintf("Refactoring goal:\n%v", goal)},
			}
			if analysis != nil {
				messages = append(messages, iterctx.Message{
					Role:    "user",
					Content: fmt.Sprintf("Repository analysis:\n%v", analysis),
				})
			}
			messages = append(messages, iterctx.Message{
				Role: "user",
				Content: "Produce a concise refactoring plan as a numbered list of steps. " +
					"Each step should describe what to change, not how to code it.",
			})

			planText, err := llm.Chat(execCtx, "gpt-4.1-mini", messages)
			if err != nil {
				return nil, fmt.Errorf("invoking LLM: %w", err)
			}

			var steps []string
			for _, line := range strings.Split(planText, "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					steps = append(steps, trimmed)
				}
			}

			return p.Emits().Build(map[string]any{
				"plan": map[string]any{
					"summary": goal,
					"steps":   steps,
				},
				"plan_ready": true,
			})
		},
	}, nil
}
