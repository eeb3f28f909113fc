/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package emission

import (
	"testing"

	"github.com/slaterhq/slater/internal/fact"
)

func TestBuildRejectsUndeclaredKey(t *testing.T) {
	spec := New(true).Declare("ready", Leaf(fact.ScopeSession))

	if _, err := spec.Build(map[string]any{"bogus": true}); err == nil {
		t.Fatal("expected error for undeclared emission key")
	}
}

func TestBuildRejectsMissingRequiredKey(t *testing.T) {
	spec := New(true).Declare("ready", Leaf(fact.ScopeSession))

	if _, err := spec.Build(map[string]any{}); err == nil {
		t.Fatal("expected error for missing required emission key")
	}
}

func TestBuildAllowsMissingOptionalKey(t *testing.T) {
	spec := New(true).
		Declare("ready", Leaf(fact.ScopeSession)).
		Declare("error_detail", Optional(fact.ScopeSession))

	facts, err := spec.Build(map[string]any{"ready": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts.Flatten()) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts.Flatten()))
	}
}

func TestBuildNestedSpec(t *testing.T) {
	repo := New(true).Declare("file_count", Leaf(fact.ScopeSession))
	spec := New(true).Nest("repo", repo)

	facts, err := spec.Build(map[string]any{
		"repo": map[string]any{"file_count": 42},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flat := facts.Flatten()
	if flat["repo.file_count"].Value != 42 {
		t.Fatalf("expected nested fact to build correctly")
	}
}

func TestFlatKeysIncludesNested(t *testing.T) {
	repo := New(true).Declare("file_count", Leaf(fact.ScopeSession))
	spec := New(true).
		Nest("repo", repo).
		Declare("ready", Leaf(fact.ScopeSession))

	keys := spec.FlatKeys()
	if _, ok := keys["repo.file_count"]; !ok {
		t.Fatal("expected flat keys to include nested key")
	}
	if _, ok := keys["ready"]; !ok {
		t.Fatal("expected flat keys to include top-level key")
	}
}
