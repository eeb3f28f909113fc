/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package iterctx holds the controller-owned context assembled at the
// start of every agent iteration: static configuration, ephemeral
// inputs, iteration metadata, and the injected LLM capability.
package iterctx

import (
	"context"
)

// Message is a single chat turn passed to an LLMClient.
type Message struct {
	Role    string
	Content string
}

// LLMClient is the minimal capability an action needs from a language
// model: take messages, return text. There is no global/singleton LLM
// client anywhere in this module — one is built per iteration (or
// omitted entirely) by the controller and threaded through explicitly.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// Context is mutable, controller-owned state assembled once per
// iteration. Only the controller may construct or mutate it; Actions
// see only the read-only View produced by AsView.
type Context struct {
	Config map[string]any
	Inputs map[string]any
	Meta   map[string]any
	LLM    LLMClient
}

// AsView produces a read-only projection for Actions.
func (c Context) AsView() View {
	return View{
		config: copyMap(c.Config),
		inputs: copyMap(c.Inputs),
		meta:   copyMap(c.Meta),
		llm:    c.LLM,
	}
}

// View is the read-only projection of Context exposed to Actions. It
// has no dict-style mutation — only explicit accessors.
type View struct {
	config map[string]any
	inputs map[string]any
	meta   map[string]any
	llm    LLMClient
}

// Config returns the static startup configuration.
func (v View) Config() map[string]any { return v.config }

// Inputs returns this iteration's external/ephemeral inputs.
func (v View) Inputs() map[string]any { return v.inputs }

// Meta returns iteration metadata (agent_id, iteration number, start time).
func (v View) Meta() map[string]any { return v.meta }

// LLM returns the injected LLM capability, or nil if none is configured
// for this iteration.
func (v View) LLM() LLMClient { return v.llm }

// Get looks up key in inputs first, then config, returning def if
// absent from both.
func (v View) Get(key string, def any) any {
	if val, ok := v.inputs[key]; ok {
		return val
	}
	if val, ok := v.config[key]; ok {
		return val
	}
	return def
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
