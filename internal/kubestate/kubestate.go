/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package kubestate persists an agent's durable facts and audit trail
// in a Kubernetes ConfigMap, for controllers that run cluster-resident
// rather than as a standalone process. It satisfies the same
// StateStore contract as state.InMemoryStore and state.FileSystemStore.
package kubestate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/state"
)

const (
	snapshotKey = "facts.json"
	historyKey  = "history.jsonl"

	// maxHistoryBytes bounds the history key: once an append pushes it
	// past this size, Save drops the oldest half of the records in
	// place, since a single etcd object is capped at ~1MiB.
	maxHistoryBytes = 512 * 1024
)

// ConfigMapStore is a StateStore backed by one ConfigMap per agent,
// named slater-state-<agent_id>.
type ConfigMapStore struct {
	client    client.Client
	namespace string
}

// New returns a ConfigMapStore that reads and writes ConfigMaps in
// namespace via c.
func New(c client.Client, namespace string) *ConfigMapStore {
	return &ConfigMapStore{client: c, namespace: namespace}
}

func configMapName(agentID string) string {
	return "slater-state-" + agentID
}

// Bootstrap idempotently creates the agent's ConfigMap, seeded from
// cfg, if it doesn't already exist.
func (s *ConfigMapStore) Bootstrap(ctx context.Context, agentID string, cfg config.Bootstrap) error {
	cm := &corev1.ConfigMap{}
	err := s.client.Get(ctx, types.NamespacedName{Name: configMapName(agentID), Namespace: s.namespace}, cm)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("checking for ConfigMap %q: %w", configMapName(agentID), err)
	}

	seed := state.BootstrapFacts(cfg)
	data, err := serializeSnapshot(seed)
	if err != nil {
		return err
	}

	cm = &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName(agentID),
			Namespace: s.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "slater",
				"slater.dev/agent-id":          agentID,
			},
		},
		Data: map[string]string{snapshotKey: data},
	}
	if err := s.client.Create(ctx, cm); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("creating ConfigMap %q: %w", configMapName(agentID), err)
	}
	return nil
}

// Save replaces the facts snapshot and appends record to the audit
// trail, in a single ConfigMap update.
func (s *ConfigMapStore) Save(ctx context.Context, agentID string, record state.IterationFacts, persistentFacts fact.Facts) error {
	cm := &corev1.ConfigMap{}
	if err := s.client.Get(ctx, types.NamespacedName{Name: configMapName(agentID), Namespace: s.namespace}, cm); err != nil {
		return fmt.Errorf("loading ConfigMap %q: %w", configMapName(agentID), err)
	}

	snapshot, err := serializeSnapshot(persistentFacts)
	if err != nil {
		return err
	}

	serialized, err := record.Serialize()
	if err != nil {
		return fmt.Errorf("serializing iteration record: %w", err)
	}
	line, err := json.Marshal(serialized)
	if err != nil {
		return fmt.Errorf("marshaling iteration record: %w", err)
	}

	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	cm.Data[snapshotKey] = snapshot

	history := cm.Data[historyKey] + string(line) + "\n"
	if len(history) > maxHistoryBytes {
		// Rotation (suffixing a dated ConfigMap with the overflow) is a
		// deliberate follow-up; for now truncate the oldest half rather
		// than grow the object past etcd's practical size limit.
		half := len(history) / 2
		if idx := strings.IndexByte(history[half:], '\n'); idx >= 0 {
			history = history[half+idx+1:]
		}
	}
	cm.Data[historyKey] = history

	if err := s.client.Update(ctx, cm); err != nil {
		return fmt.Errorf("updating ConfigMap %q: %w", configMapName(agentID), err)
	}
	return nil
}

// Load returns the current durable Facts for agentID, or an empty
// tree if its ConfigMap doesn't exist yet.
func (s *ConfigMapStore) Load(ctx context.Context, agentID string) (fact.Facts, error) {
	cm := &corev1.ConfigMap{}
	err := s.client.Get(ctx, types.NamespacedName{Name: configMapName(agentID), Namespace: s.namespace}, cm)
	if apierrors.IsNotFound(err) {
		return fact.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ConfigMap %q: %w", configMapName(agentID), err)
	}

	raw, ok := cm.Data[snapshotKey]
	if !ok {
		return fact.Empty(), nil
	}
	return deserializeSnapshot(raw)
}

// History returns the iteration audit trail recorded for agentID.
func (s *ConfigMapStore) History(ctx context.Context, agentID string) ([]state.IterationFacts, error) {
	cm := &corev1.ConfigMap{}
	err := s.client.Get(ctx, types.NamespacedName{Name: configMapName(agentID), Namespace: s.namespace}, cm)
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ConfigMap %q: %w", configMapName(agentID), err)
	}

	raw, ok := cm.Data[historyKey]
	if !ok {
		return nil, nil
	}

	var records []state.IterationFacts
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			return nil, fmt.Errorf("parsing history record: %w", err)
		}
		rec, err := state.DecodeIterationFacts(decoded)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return records, nil
}

func serializeSnapshot(facts fact.Facts) (string, error) {
	serialized, err := facts.Serialize()
	if err != nil {
		return "", fmt.Errorf("serializing state snapshot: %w", err)
	}
	data, err := json.Marshal(serialized)
	if err != nil {
		return "", fmt.Errorf("marshaling state snapshot: %w", err)
	}
	return string(data), nil
}

func deserializeSnapshot(raw string) (fact.Facts, error) {
	var flat map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, fmt.Errorf("parsing state snapshot: %w", err)
	}
	return fact.DeserializeFacts(flat)
}
