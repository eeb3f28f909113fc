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
	"time"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/phase"
)

// IterationFacts is a provenance-preserving record of the Facts
// asserted by each action during a single iteration — the unit the
// filesystem and ConfigMap StateStore variants append to the audit
// trail.
type IterationFacts struct {
	Iteration int
	Phase     phase.Phase
	ByAction  map[string]fact.Facts
	Timestamp time.Time
}

// Serialize returns the JSON-safe wire form of an IterationFacts
// record.
func (i IterationFacts) Serialize() (map[string]any, error) {
	byAction := make(map[string]map[string]map[string]any, len(i.ByAction))
	for action, facts := range i.ByAction {
		serialized, err := facts.Serialize()
		if err != nil {
			return nil, err
		}
		byAction[action] = serialized
	}
	return map[string]any{
		"iteration":       i.Iteration,
		"phase":           string(i.Phase),
		"timestamp":       float64(i.Timestamp.UnixNano()) / 1e9,
		"facts_by_action": byAction,
	}, nil
}

// StateStore is the durable persistence contract for an agent's
// facts: seed initial state once, save durable facts and an audit
// record at each iteration boundary, load the current durable facts,
// and recall the audit trail.
//
// Implementations: InMemoryStore (tests), FileSystemStore (single-node
// runs), internal/kubestate.ConfigMapStore (cluster-resident runs). All
// three must yield identical Facts trees for identical bootstrap
// inputs — see conformance_test.go.
type StateStore interface {
	// Bootstrap seeds initial persistent facts from cfg. Called once
	// before the first iteration; implementations must be idempotent
	// so re-running a crashed controller doesn't clobber existing state.
	Bootstrap(ctx context.Context, agentID string, cfg config.Bootstrap) error

	// Save persists an iteration's audit record and replaces the
	// durable Facts snapshot with persistentFacts.
	Save(ctx context.Context, agentID string, record IterationFacts, persistentFacts fact.Facts) error

	// Load returns the current durable Facts for agentID, or an empty
	// Facts tree if none exist yet.
	Load(ctx context.Context, agentID string) (fact.Facts, error)

	// History returns the full append-only audit trail for agentID.
	History(ctx context.Context, agentID string) ([]IterationFacts, error)
}

// BootstrapFacts translates a config.Bootstrap document into the seed
// Facts every StateStore variant applies identically.
func BootstrapFacts(cfg config.Bootstrap) fact.Facts {
	items := make(map[string]fact.Node)

	if cfg.Goal != "" {
		items["goal"] = fact.Fact{Key: "goal", Value: cfg.Goal, Scope: fact.ScopeSession, Kind: fact.KindKnowledge}
	}

	if cfg.Repo != nil {
		items["repo_root"] = fact.Fact{Key: "repo_root", Value: cfg.Repo.Root, Scope: fact.ScopeSession, Kind: fact.KindKnowledge}
		if len(cfg.Repo.Ignore) > 0 {
			items["repo_ignore"] = fact.Fact{Key: "repo_ignore", Value: cfg.Repo.Ignore, Scope: fact.ScopeSession, Kind: fact.KindKnowledge}
		}
	}

	seed, _ := fact.NewFacts(items)
	return seed
}
