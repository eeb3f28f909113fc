/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package emission declares the facts an action produces, and builds
// validated Facts from an action's actual output values — the single
// source of truth that eliminates drift between declared and actual
// emissions.
package emission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slaterhq/slater/internal/fact"
)

// Declaration is a single leaf emission: its scope, kind, and whether
// the action may omit it (e.g. an error fact only emitted on failure).
type Declaration struct {
	Scope    fact.Scope
	Kind     fact.Kind
	Required bool
}

// Leaf builds a required Declaration with the given scope, defaulting
// to fact.KindKnowledge.
func Leaf(scope fact.Scope) Declaration {
	return Declaration{Scope: scope, Kind: fact.KindKnowledge, Required: true}
}

// Optional builds a Declaration that may be omitted from Build's values.
func Optional(scope fact.Scope) Declaration {
	return Declaration{Scope: scope, Kind: fact.KindKnowledge, Required: false}
}

// WithKind returns a copy of d tagged with the given Kind.
func (d Declaration) WithKind(k fact.Kind) Declaration {
	d.Kind = k
	return d
}

// entry is either a leaf Declaration or a nested Spec.
type entry struct {
	decl    *Declaration
	nested  *Spec
}

// Spec is a declarative specification of the facts an action emits.
// Build validates actual values against the declarations, so drift
// between what's declared and what's produced is caught at build time,
// not left to the reader.
type Spec struct {
	entries  map[string]entry
	required bool
}

// New constructs an emission Spec. Pass required=false when nesting
// this Spec inside another and the whole group may be omitted.
func New(required bool) *Spec {
	return &Spec{entries: make(map[string]entry), required: required}
}

// Declare registers a leaf emission under key.
func (s *Spec) Declare(key string, d Declaration) *Spec {
	s.entries[key] = entry{decl: &d}
	return s
}

// Nest registers a nested emission group under key.
func (s *Spec) Nest(key string, nested *Spec) *Spec {
	s.entries[key] = entry{nested: nested}
	return s
}

// Keys returns the top-level declared emission keys.
func (s *Spec) Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(s.entries))
	for k := range s.entries {
		out[k] = struct{}{}
	}
	return out
}

// FlatKeys returns every declared key, flattened with dot-notation for
// nested specs.
func (s *Spec) FlatKeys() map[string]struct{} {
	return s.flatKeys("")
}

func (s *Spec) flatKeys(prefix string) map[string]struct{} {
	out := make(map[string]struct{})
	for key, e := range s.entries {
		fq := key
		if prefix != "" {
			fq = prefix + "." + key
		}
		if e.nested != nil {
			for k := range e.nested.flatKeys(fq) {
				out[k] = struct{}{}
			}
			continue
		}
		out[fq] = struct{}{}
	}
	return out
}

// ToDict exports the flattened declaration set as fully-qualified key
// -> scope, for static validation (internal/validation).
func (s *Spec) ToDict() map[string]fact.Scope {
	return s.toDict("")
}

func (s *Spec) toDict(prefix string) map[string]fact.Scope {
	out := make(map[string]fact.Scope)
	for key, e := range s.entries {
		fq := key
		if prefix != "" {
			fq = prefix + "." + key
		}
		if e.nested != nil {
			for k, v := range e.nested.toDict(fq) {
				out[k] = v
			}
			continue
		}
		out[fq] = e.decl.Scope
	}
	return out
}

// Build validates values against the Spec and constructs a Facts tree
// with the declared scope and kind for each key.
//
// It fails if values contains an undeclared key, or omits a required
// key.
func (s *Spec) Build(values map[string]any) (fact.Facts, error) {
	var undeclared []string
	for key := range values {
		if _, ok := s.entries[key]; !ok {
			undeclared = append(undeclared, key)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return nil, fmt.Errorf("undeclared emission keys: %s (declared keys: %s)",
			strings.Join(undeclared, ", "), strings.Join(sortedKeys(s.entries), ", "))
	}

	var missing []string
	for key, e := range s.entries {
		required := true
		if e.decl != nil {
			required = e.decl.Required
		} else if e.nested != nil {
			required = e.nested.required
		}
		if _, present := values[key]; required && !present {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required emission keys: %s", strings.Join(missing, ", "))
	}

	built := make(map[string]fact.Node, len(values))
	for key, value := range values {
		e := s.entries[key]
		if e.nested != nil {
			nestedValues, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map[string]any for nested emission %q, got %T", key, value)
			}
			nestedFacts, err := e.nested.Build(nestedValues)
			if err != nil {
				return nil, fmt.Errorf("nested emission %q: %w", key, err)
			}
			built[key] = nestedFacts
			continue
		}
		built[key] = fact.Fact{
			Key:   key,
			Value: value,
			Scope: e.decl.Scope,
			Kind:  e.decl.Kind,
		}
	}

	return fact.NewFacts(built)
}

func sortedKeys(entries map[string]entry) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
