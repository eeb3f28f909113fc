/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package mcpserver exposes a running agent's durable state read-only
// over MCP, so an operator's editor or chat client can inspect facts
// and history without shelling into `slater history`.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slaterhq/slater/internal/state"
)

// Server wraps an mcp.Server bound to a single StateStore.
type Server struct {
	impl  *mcp.Server
	store state.StateStore
}

// New constructs a read-only MCP server exposing get_facts and
// get_history tools against store.
func New(store state.StateStore) *Server {
	impl := mcp.NewServer(&mcp.Implementation{
		Name:    "slater",
		Version: "0.1.0",
	}, nil)

	s := &Server{impl: impl, store: store}

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "get_facts",
		Description: "Read the current durable facts for an agent",
	}, s.getFacts)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "get_history",
		Description: "Read the iteration audit trail for an agent",
	}, s.getHistory)

	return s
}

// Run serves the MCP protocol over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.impl.Run(ctx, &mcp.StdioTransport{})
}

// GetFactsInput names the agent whose current facts to read.
type GetFactsInput struct {
	AgentID string `json:"agent_id" jsonschema:"the agent identifier whose current facts to read"`
}

// GetFactsOutput is the flattened, JSON-safe form of an agent's
// durable facts tree.
type GetFactsOutput struct {
	Facts map[string]map[string]any `json:"facts"`
}

func (s *Server) getFacts(ctx context.Context, req *mcp.CallToolRequest, input GetFactsInput) (*mcp.CallToolResult, GetFactsOutput, error) {
	if input.AgentID == "" {
		return nil, GetFactsOutput{}, fmt.Errorf("agent_id is required")
	}

	facts, err := s.store.Load(ctx, input.AgentID)
	if err != nil {
		return nil, GetFactsOutput{}, fmt.Errorf("loading facts for agent %q: %w", input.AgentID, err)
	}

	serialized, err := facts.Serialize()
	if err != nil {
		return nil, GetFactsOutput{}, fmt.Errorf("serializing facts for agent %q: %w", input.AgentID, err)
	}

	return nil, GetFactsOutput{Facts: serialized}, nil
}

// GetHistoryInput names the agent whose iteration history to read.
type GetHistoryInput struct {
	AgentID string `json:"agent_id" jsonschema:"the agent identifier whose iteration history to read"`
}

// GetHistoryOutput is one entry per recorded iteration.
type GetHistoryOutput struct {
	Iterations []HistoryEntry `json:"iterations"`
}

// HistoryEntry is a single iteration's phase and per-action facts.
type HistoryEntry struct {
	Iteration int                                    `json:"iteration"`
	Phase     string                                 `json:"phase"`
	Timestamp string                                 `json:"timestamp"`
	ByAction  map[string]map[string]map[string]any  `json:"facts_by_action"`
}

func (s *Server) getHistory(ctx context.Context, req *mcp.CallToolRequest, input GetHistoryInput) (*mcp.CallToolResult, GetHistoryOutput, error) {
	if input.AgentID == "" {
		return nil, GetHistoryOutput{}, fmt.Errorf("agent_id is required")
	}

	records, err := s.store.History(ctx, input.AgentID)
	if err != nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("loading history for agent %q: %w", input.AgentID, err)
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		byAction := make(map[string]map[string]map[string]any, len(record.ByAction))
		for action, facts := range record.ByAction {
			serialized, err := facts.Serialize()
			if err != nil {
				return nil, GetHistoryOutput{}, fmt.Errorf("serializing facts for action %q: %w", action, err)
			}
			byAction[action] = serialized
		}
		entries = append(entries, HistoryEntry{
			Iteration: record.Iteration,
			Phase:     string(record.Phase),
			Timestamp: record.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			ByAction:  byAction,
		})
	}

	return nil, GetHistoryOutput{Iterations: entries}, nil
}
