/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package state holds the mutable per-iteration working state and the
// StateStore durable-persistence contract.
package state

import (
	"github.com/slaterhq/slater/internal/fact"
)

// IterationState is mutable, iteration-local working state. It holds
// Facts with scope, applies them eagerly as actions complete within an
// iteration, evicts iteration-scoped Facts at the next boundary, and
// projects to plain values for read access by Actions.
type IterationState struct {
	persistent map[string]fact.Fact
	iteration  map[string]fact.Fact
}

// NewIterationState seeds persistent/session state from baseFacts,
// carrying forward everything not scoped to a single iteration.
func NewIterationState(baseFacts fact.Facts) *IterationState {
	s := &IterationState{
		persistent: make(map[string]fact.Fact),
		iteration:  make(map[string]fact.Fact),
	}
	for _, entry := range baseFacts.IterFacts() {
		if entry.Fact.Scope != fact.ScopeIteration {
			s.persistent[entry.Key] = entry.Fact
		}
	}
	return s
}

// BeginIteration evicts all iteration-scoped facts. Must be called
// exactly once per iteration before any action runs.
func (s *IterationState) BeginIteration() {
	s.iteration = make(map[string]fact.Fact)
}

// ApplyFacts routes each leaf Fact in facts to the iteration-scoped or
// persistent/session map by its Scope, making it immediately visible to
// subsequent reads within the same iteration.
func (s *IterationState) ApplyFacts(facts fact.Facts) {
	for _, entry := range facts.IterFacts() {
		if entry.Fact.Scope == fact.ScopeIteration {
			s.iteration[entry.Key] = entry.Fact
		} else {
			s.persistent[entry.Key] = entry.Fact
		}
	}
}

// Value returns the current value for key, preferring iteration-scoped
// over persistent, and ok=false if key is unknown.
func (s *IterationState) Value(key string) (any, bool) {
	if f, ok := s.iteration[key]; ok {
		return f.Value, true
	}
	if f, ok := s.persistent[key]; ok {
		return f.Value, true
	}
	return nil, false
}

// Get returns the current value for key, or def if key is unknown.
func (s *IterationState) Get(key string, def any) any {
	if v, ok := s.Value(key); ok {
		return v
	}
	return def
}

// Contains reports whether key has a value in either scope.
func (s *IterationState) Contains(key string) bool {
	if _, ok := s.iteration[key]; ok {
		return true
	}
	_, ok := s.persistent[key]
	return ok
}

// Snapshot is a value-only projection over both scopes, useful for
// debugging and policy checks.
func (s *IterationState) Snapshot() map[string]any {
	out := make(map[string]any, len(s.persistent)+len(s.iteration))
	for k, f := range s.persistent {
		out[k] = f.Value
	}
	for k, f := range s.iteration {
		out[k] = f.Value
	}
	return out
}

// PersistentFacts projects the facts eligible for persistence at
// iteration end — the persistence boundary: iteration-scoped facts
// never reach a StateStore.
func (s *IterationState) PersistentFacts() fact.Facts {
	return fact.Unflatten(s.persistent)
}
