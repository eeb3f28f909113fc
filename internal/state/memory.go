/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package state

import (
	"context"
	"sync"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
)

// InMemoryStore is a StateStore backed entirely by process memory. It
// is used in tests and for one-shot local runs that don't need
// state to survive the process.
type InMemoryStore struct {
	mu         sync.Mutex
	persistent map[string]fact.Facts
	history    map[string][]IterationFacts
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		persistent: make(map[string]fact.Facts),
		history:    make(map[string][]IterationFacts),
	}
}

// Bootstrap seeds agentID's persistent facts from cfg. Idempotent: if
// this store instance already holds facts for agentID, they are left
// untouched, as the filesystem/ConfigMap variants leave an existing
// snapshot. Nothing survives the process.
func (s *InMemoryStore) Bootstrap(_ context.Context, agentID string, cfg config.Bootstrap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persistent[agentID]; ok {
		return nil
	}
	s.persistent[agentID] = BootstrapFacts(cfg)
	s.history[agentID] = nil
	return nil
}

// Save appends record to the audit trail and replaces the durable
// Facts snapshot for agentID.
func (s *InMemoryStore) Save(_ context.Context, agentID string, record IterationFacts, persistentFacts fact.Facts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[agentID] = append(s.history[agentID], record)
	s.persistent[agentID] = persistentFacts
	return nil
}

// Load returns the current durable Facts for agentID.
func (s *InMemoryStore) Load(_ context.Context, agentID string) (fact.Facts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.persistent[agentID]; ok {
		return f, nil
	}
	return fact.Empty(), nil
}

// History returns a copy of the audit trail recorded for agentID.
func (s *InMemoryStore) History(_ context.Context, agentID string) ([]IterationFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.history[agentID]
	out := make([]IterationFacts, len(recs))
	copy(out, recs)
	return out, nil
}
