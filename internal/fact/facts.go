/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package fact

import (
	"fmt"
	"sort"
	"strings"
)

// Node is implemented by the two things a Facts tree may hold: a leaf
// Fact or a nested Facts group. Go has no tagged union, so this closed,
// two-case interface plays that role.
type Node interface {
	isNode()
}

func (Fact) isNode()  {}
func (Facts) isNode() {}

// Facts is a keyed collection of Nodes, supporting nesting for
// namespaced fact groups (e.g. repo.file_count).
//
// Invariants:
//   - a leaf Fact's Key must equal the map key it is stored under
//   - nested Facts groups may be stored at any depth
type Facts map[string]Node

// NewFacts builds a Facts tree, enforcing key alignment on leaf Facts.
func NewFacts(items map[string]Node) (Facts, error) {
	f := make(Facts, len(items))
	for key, item := range items {
		if leaf, ok := item.(Fact); ok && leaf.Key != key {
			return nil, fmt.Errorf("fact key mismatch: mapping key %q != fact.Key %q", key, leaf.Key)
		}
		f[key] = item
	}
	return f, nil
}

// Empty returns a Facts tree with no entries.
func Empty() Facts {
	return Facts{}
}

// leafEntry pairs a fully-qualified dotted key with its leaf Fact.
type leafEntry struct {
	Key  string
	Fact Fact
}

// IterFacts yields every leaf Fact as (fully-qualified-key, Fact) pairs,
// walking nested groups depth-first in sorted key order for deterministic
// iteration.
func (f Facts) IterFacts() []leafEntry {
	return f.iterFacts("")
}

func (f Facts) iterFacts(prefix string) []leafEntry {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []leafEntry
	for _, key := range keys {
		fq := key
		if prefix != "" {
			fq = prefix + "." + key
		}
		switch item := f[key].(type) {
		case Facts:
			out = append(out, item.iterFacts(fq)...)
		case Fact:
			out = append(out, leafEntry{Key: fq, Fact: item})
		}
	}
	return out
}

// Serialize flattens the tree into fully-qualified keys mapped to
// JSON-safe Fact wire forms.
func (f Facts) Serialize() (map[string]map[string]any, error) {
	flat := make(map[string]map[string]any)
	for _, entry := range f.IterFacts() {
		s, err := entry.Fact.Serialize()
		if err != nil {
			return nil, err
		}
		flat[entry.Key] = s
	}
	return flat, nil
}

// Flatten is the pure structural transform: nested tree -> flat
// dotted-key map of Fact values (no serialization).
func (f Facts) Flatten() map[string]Fact {
	flat := make(map[string]Fact)
	for _, entry := range f.IterFacts() {
		flat[entry.Key] = entry.Fact
	}
	return flat
}

// Unflatten is the inverse structural transform: a flat dotted-key map
// of Facts becomes a nested tree.
func Unflatten(flat map[string]Fact) Facts {
	root := Facts{}
	for fqKey, f := range flat {
		parts := strings.Split(fqKey, ".")
		current := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(Facts)
			if !ok {
				next = Facts{}
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = f
	}
	return root
}

// DeserializeFacts reconstitutes a Facts tree from its serialized (flat,
// dotted-key) form, composing Deserialize (type transform) with
// Unflatten (structure transform).
func DeserializeFacts(flat map[string]map[string]any) (Facts, error) {
	plain := make(map[string]Fact, len(flat))
	for key, data := range flat {
		f, err := Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("deserializing fact %q: %w", key, err)
		}
		plain[key] = f
	}
	return Unflatten(plain), nil
}
