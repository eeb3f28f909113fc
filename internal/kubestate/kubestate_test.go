/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package kubestate

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/state"
)

func newFakeStore() *ConfigMapStore {
	scheme := runtime.NewScheme()
	_ = corev1.AddToScheme(scheme)
	fc := fake.NewClientBuilder().WithScheme(scheme).Build()
	return New(fc, "default")
}

func TestBootstrapIsIdempotent(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	cfg := config.Bootstrap{Goal: "refactor the widget module"}

	if err := store.Bootstrap(ctx, "agent-1", cfg); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if err := store.Bootstrap(ctx, "agent-1", cfg); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	facts, err := store.Load(ctx, "agent-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	flat := facts.Flatten()
	if flat["goal"].Value != "refactor the widget module" {
		t.Errorf("expected goal fact to survive re-bootstrap, got %+v", flat["goal"])
	}
}

func TestLoadEmptyBeforeBootstrap(t *testing.T) {
	store := newFakeStore()
	facts, err := store.Load(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts.Flatten()) != 0 {
		t.Errorf("expected empty facts, got %+v", facts)
	}
}

func TestSaveAndHistoryRoundTrip(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	if err := store.Bootstrap(ctx, "agent-2", config.Bootstrap{}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	persistent, err := fact.NewFacts(map[string]fact.Node{
		"plan_ready": fact.Fact{Key: "plan_ready", Value: true, Scope: fact.ScopePersistent, Kind: fact.KindKnowledge},
	})
	if err != nil {
		t.Fatalf("building facts: %v", err)
	}

	record := state.IterationFacts{
		Iteration: 1,
		Phase:     "READY_TO_CONTINUE",
		ByAction: map[string]fact.Facts{
			"propose_plan": persistent,
		},
		Timestamp: time.Now(),
	}

	if err := store.Save(ctx, "agent-2", record, persistent); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "agent-2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v := loaded.Flatten()["plan_ready"].Value; v != true {
		t.Errorf("expected plan_ready=true, got %+v", v)
	}

	history, err := store.History(ctx, "agent-2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}
	if history[0].Iteration != 1 || history[0].Phase != "READY_TO_CONTINUE" {
		t.Errorf("unexpected history record: %+v", history[0])
	}
}
