/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package procedure holds ProcedureTemplate: an immutable, named,
// ordered sequence of Action templates that materializes a fresh,
// context-bound procedure for each iteration.
package procedure

import (
	"fmt"

	"github.com/slaterhq/slater/internal/action"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

// Template is a reusable, context-agnostic sequence of Action
// templates. It is immutable after construction, owns template
// Actions that are never executed directly, and materializes a fresh
// ordered list of Bound actions per iteration.
type Template struct {
	Name    string
	actions []action.Action
}

// NewTemplate builds a Template from an ordered list of Action
// templates.
func NewTemplate(name string, actions ...action.Action) Template {
	return Template{Name: name, actions: actions}
}

// Materialize binds every template Action to st/ctx, in order,
// producing the concrete Bound sequence an iteration will execute.
func (t Template) Materialize(st *state.IterationState, ctx iterctx.View) ([]action.Bound, error) {
	bound := make([]action.Bound, 0, len(t.actions))
	for _, a := range t.actions {
		var (
			boundState *state.IterationState
			boundCtx   iterctx.View
		)
		if a.RequiresState() {
			boundState = st
		}
		if a.RequiresContext() {
			boundCtx = ctx
		}

		b, err := a.Materialize(boundState, boundCtx)
		if err != nil {
			return nil, fmt.Errorf("materializing action %q in procedure %q: %w", a.Name(), t.Name, err)
		}
		bound = append(bound, b)
	}
	return bound, nil
}

func (t Template) String() string {
	names := make([]string, len(t.actions))
	for i, a := range t.actions {
		names[i] = a.Name()
	}
	return fmt.Sprintf("<ProcedureTemplate name=%s actions=%v>", t.Name, names)
}

// Actions returns the template's Action sequence, for introspection
// (e.g. the fact-scope validator walking declared emissions).
func (t Template) Actions() []action.Action {
	out := make([]action.Action, len(t.actions))
	copy(out, t.actions)
	return out
}
