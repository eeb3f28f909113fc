/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/phase"
)

// FileSystemStore is a StateStore backed by one JSON file per agent
// (the durable Facts snapshot) plus one append-only JSONL file per
// agent (the iteration audit trail). Snapshot writes are atomic:
// write to a temp file, then rename over the target, so a crash
// mid-write never leaves a torn snapshot.
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates (if needed) root and returns a
// FileSystemStore rooted there.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating state root %q: %w", root, err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) snapshotPath(agentID string) string {
	return filepath.Join(s.root, agentID+".json")
}

func (s *FileSystemStore) historyPath(agentID string) string {
	return filepath.Join(s.root, agentID+"_history.jsonl")
}

// Bootstrap idempotently seeds agentID's snapshot file from cfg: if the
// snapshot already exists, it is left untouched so a restarted
// controller resumes from where it left off rather than re-seeding.
func (s *FileSystemStore) Bootstrap(_ context.Context, agentID string, cfg config.Bootstrap) error {
	path := s.snapshotPath(agentID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	seed := BootstrapFacts(cfg)
	return s.writeSnapshotAtomic(path, seed)
}

// Save appends record to the audit trail and atomically replaces the
// durable Facts snapshot for agentID.
func (s *FileSystemStore) Save(_ context.Context, agentID string, record IterationFacts, persistentFacts fact.Facts) error {
	if err := s.writeSnapshotAtomic(s.snapshotPath(agentID), persistentFacts); err != nil {
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

	f, err := os.OpenFile(s.historyPath(agentID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending history record: %w", err)
	}
	return nil
}

// Load returns the current durable Facts for agentID, or an empty tree
// if no snapshot exists yet.
func (s *FileSystemStore) Load(_ context.Context, agentID string) (fact.Facts, error) {
	path := s.snapshotPath(agentID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fact.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state snapshot %q: %w", path, err)
	}

	var flat map[string]map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parsing state snapshot %q: %w", path, err)
	}
	return fact.DeserializeFacts(flat)
}

// History returns the iteration audit trail recorded for agentID.
func (s *FileSystemStore) History(_ context.Context, agentID string) ([]IterationFacts, error) {
	path := s.historyPath(agentID)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history file %q: %w", path, err)
	}
	defer f.Close()

	var records []IterationFacts
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("parsing history record: %w", err)
		}
		rec, err := DecodeIterationFacts(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file %q: %w", path, err)
	}
	return records, nil
}

func (s *FileSystemStore) writeSnapshotAtomic(path string, facts fact.Facts) error {
	serialized, err := facts.Serialize()
	if err != nil {
		return fmt.Errorf("serializing state snapshot: %w", err)
	}
	data, err := json.MarshalIndent(serialized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp state file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming temp state file %q -> %q: %w", tmp, path, err)
	}
	return nil
}

func DecodeIterationFacts(raw map[string]any) (IterationFacts, error) {
	rec := IterationFacts{ByAction: make(map[string]fact.Facts)}

	if iter, ok := raw["iteration"].(float64); ok {
		rec.Iteration = int(iter)
	}
	if p, ok := raw["phase"].(string); ok {
		rec.Phase = phase.Phase(p)
	}
	if ts, ok := raw["timestamp"].(float64); ok {
		rec.Timestamp = time.Unix(0, int64(ts*1e9))
	}

	byAction, _ := raw["facts_by_action"].(map[string]any)
	for action, v := range byAction {
		flat, ok := v.(map[string]any)
		if !ok {
			continue
		}
		converted := make(map[string]map[string]any, len(flat))
		for k, fv := range flat {
			fm, ok := fv.(map[string]any)
			if !ok {
				continue
			}
			converted[k] = fm
		}
		facts, err := fact.DeserializeFacts(converted)
		if err != nil {
			return IterationFacts{}, fmt.Errorf("decoding action %q facts: %w", action, err)
		}
		rec.ByAction[action] = facts
	}

	return rec, nil
}
