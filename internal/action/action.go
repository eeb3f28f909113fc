/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package action defines the uniform contract every procedure step
// implements: a template Action that declares its emissions and, when
// materialized against an iteration's state and context, becomes a
// Bound ready to execute.
package action

import (
	"context"

	"github.com/slaterhq/slater/internal/emission"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/state"
)

// Action is an immutable template. Subclasses (concrete action types)
// declare their emission contract via Emits and their instruction via
// the Bound returned from Materialize.
type Action interface {
	// Name identifies this action in audit records and error messages.
	Name() string

	// Emits declares the facts this action may produce. Nil means the
	// action emits nothing.
	Emits() *emission.Spec

	// RequiresState reports whether Materialize must be given
	// non-nil IterationState.
	RequiresState() bool

	// RequiresContext reports whether Materialize must be given a
	// non-nil context view.
	RequiresContext() bool

	// Materialize binds this action template to a specific
	// iteration's state and context, producing a fresh Bound ready to
	// execute. Called once per iteration per action — never shared
	// across iterations.
	Materialize(st *state.IterationState, ctx iterctx.View) (Bound, error)
}

// Bound is a materialized Action ready to execute within a single
// iteration.
type Bound interface {
	// Name identifies this action in audit records and error messages.
	Name() string

	// Execute runs the action's instruction and returns the Facts it
	// asserts. An error means the action failed: it contributes no
	// facts, and the procedure executing it stops before the next
	// action (failure short-circuits a procedure).
	Execute(ctx context.Context) (fact.Facts, error)
}

// Base is embedded by concrete Action implementations to supply the
// uniform accessors every action needs (Name, Emits, RequiresState,
// RequiresContext), leaving only Materialize to be implemented per
// action.
type Base struct {
	ActionName          string
	NeedsState          bool
	NeedsContext        bool
	EmissionDeclaration *emission.Spec
}

func (b Base) Name() string          { return b.ActionName }
func (b Base) Emits() *emission.Spec { return b.EmissionDeclaration }
func (b Base) RequiresState() bool   { return b.NeedsState }
func (b Base) RequiresContext() bool { return b.NeedsContext }

// Func adapts a plain function to Bound, so a concrete Action's
// Materialize can return a closure over the bound state/context
// instead of a dedicated named type.
type Func struct {
	ActionName string
	Fn         func(ctx context.Context) (fact.Facts, error)
}

func (f Func) Name() string { return f.ActionName }

// Execute runs the wrapped function.
func (f Func) Execute(ctx context.Context) (fact.Facts, error) {
	return f.Fn(ctx)
}
