/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package phase

import "testing"

func TestNewSetRejectsLowercase(t *testing.T) {
	if _, err := NewSet("start"); err == nil {
		t.Fatal("expected error for lowercase phase name")
	}
}

func TestNewSetRejectsReserved(t *testing.T) {
	if _, err := NewSet("ANY"); err == nil {
		t.Fatal("expected error for reserved phase name")
	}
}

func TestNewSetRejectsDuplicate(t *testing.T) {
	if _, err := NewSet("START", "START"); err == nil {
		t.Fatal("expected error for duplicate phase name")
	}
}

func TestNewSetPreservesOrder(t *testing.T) {
	set, err := NewSet("START", "PROCESSING", "DONE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	members := set.Members()
	want := []Phase{"START", "PROCESSING", "DONE"}
	for i, p := range want {
		if members[i] != p {
			t.Fatalf("expected order %v, got %v", want, members)
		}
	}
}

func TestRuleMatches(t *testing.T) {
	r := Rule{
		Enter:    "READY",
		WhenAll:  KeySet("analysis_ready", "context_ready"),
		WhenNone: KeySet("plan_ready"),
	}

	if !r.Matches(KeySet("analysis_ready", "context_ready")) {
		t.Fatal("expected rule to match when all required keys present and none excluded")
	}
	if r.Matches(KeySet("analysis_ready", "context_ready", "plan_ready")) {
		t.Fatal("expected rule not to match when excluded key present")
	}
	if r.Matches(KeySet("analysis_ready")) {
		t.Fatal("expected rule not to match when a required key is missing")
	}
}
