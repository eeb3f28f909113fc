/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package fact defines the Fact/Facts data model: the only unit of
// information an agent iteration can produce or read.
package fact

import (
	"encoding/json"
	"fmt"
)

// Scope controls where a Fact lives once an iteration ends.
type Scope string

const (
	// ScopeIteration facts are discarded at the next iteration boundary.
	ScopeIteration Scope = "iteration"
	// ScopeSession facts persist for the agent's lifetime.
	ScopeSession Scope = "session"
	// ScopePersistent facts persist across agent restarts.
	//
	// Handled identically to ScopeSession today — see DESIGN.md Open
	// Question (a). Kept as a distinct tag rather than collapsed into
	// ScopeSession so a future restart-semantics split doesn't require
	// a migration of existing Facts.
	ScopePersistent Scope = "persistent"
)

// Kind classifies a Fact's semantic role. It never changes control-flow
// behavior — only documentation and introspection use it.
type Kind string

const (
	KindProgress      Kind = "progress"
	KindAuthorization Kind = "authorization"
	KindKnowledge     Kind = "knowledge"
	KindArtifact      Kind = "artifact"
	KindDiagnostic    Kind = "diagnostic"
)

// Fact is a single named, scoped, typed value asserted by an action.
type Fact struct {
	Key   string
	Value any
	Scope Scope
	Kind  Kind
}

// New builds a Fact defaulting to ScopeIteration and KindKnowledge,
// mirroring the Python dataclass's defaults.
func New(key string, value any) Fact {
	return Fact{Key: key, Value: value, Scope: ScopeIteration, Kind: KindKnowledge}
}

type serializedFact struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Scope Scope  `json:"scope"`
}

// Serialize enforces that Value is JSON-representable and returns the
// wire form of this Fact.
func (f Fact) Serialize() (map[string]any, error) {
	if _, err := json.Marshal(f.Value); err != nil {
		return nil, fmt.Errorf("fact %q has non-JSON-serializable value %v: %w", f.Key, f.Value, err)
	}
	return map[string]any{
		"key":   f.Key,
		"value": f.Value,
		"scope": f.Scope,
	}, nil
}

// Deserialize reconstructs a Fact from its wire form.
func Deserialize(data map[string]any) (Fact, error) {
	key, _ := data["key"].(string)
	if key == "" {
		return Fact{}, fmt.Errorf("fact data missing key")
	}
	scopeRaw, _ := data["scope"].(string)
	if scopeRaw == "" {
		scopeRaw = string(ScopeIteration)
	}
	return Fact{
		Key:   key,
		Value: normalizeJSONValue(data["value"]),
		Scope: Scope(scopeRaw),
		Kind:  KindKnowledge,
	}, nil
}

// normalizeJSONValue undoes the one lossy step of a real round trip
// through encoding/json: a Go []string (or []any holding only strings)
// survives json.Marshal, but json.Unmarshal always hands it back as
// []interface{}, which a consumer's `.([]string)` type assertion then
// fails silently. Facts that never cross an actual byte boundary (the
// in-memory store, direct Serialize/Deserialize calls in tests) keep
// their original Go types and are untouched by this pass.
func normalizeJSONValue(v any) any {
	switch val := v.(type) {
	case []any:
		allStrings := len(val) > 0
		normalized := make([]any, len(val))
		for i, elem := range val {
			normalized[i] = normalizeJSONValue(elem)
			if _, ok := normalized[i].(string); !ok {
				allStrings = false
			}
		}
		if allStrings {
			strs := make([]string, len(normalized))
			for i, elem := range normalized {
				strs[i] = elem.(string)
			}
			return strs
		}
		return normalized
	case map[string]any:
		normalized := make(map[string]any, len(val))
		for k, elem := range val {
			normalized[k] = normalizeJSONValue(elem)
		}
		return normalized
	default:
		return v
	}
}
