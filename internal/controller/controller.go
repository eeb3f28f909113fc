/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package controller drives an AgentSpec's iteration loop: load durable
// state, materialize and execute the current phase's procedure with
// eager fact application, persist durable facts, then evaluate the
// control and transition policies to decide whether to continue,
// pause, or terminate.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/fact"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/metrics"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
	"github.com/slaterhq/slater/internal/spec"
	"github.com/slaterhq/slater/internal/state"
	"github.com/slaterhq/slater/internal/telemetry"
)

// fakeProviders are LLM providers that never need a real client — unit
// tests and demo agents declare one of these instead of configuring
// credentials.
var fakeProviders = map[string]struct{}{
	"fake": {}, "test": {}, "mock": {},
}

// Options configures an AgentController's construction.
type Options struct {
	Spec            *spec.AgentSpec
	AgentID         string
	BootstrapConfig config.Bootstrap
	StateStore      state.StateStore

	// LLMFactory builds the LLMClient for an iteration given the
	// resolved LLM config. Left nil, iterations with no LLM config (or
	// a fake/test/mock provider) simply run without one; Materialize on
	// an action that RequiresContext with a nil LLM is the action's own
	// responsibility to reject.
	LLMFactory func(ctx context.Context, cfg config.LLMConfig) (iterctx.LLMClient, error)

	// ReadExternalInputs supplies this iteration's ephemeral inputs
	// (CLI flags, stdin, webhook payloads). Left nil, iterations get an
	// empty inputs map.
	ReadExternalInputs func(ctx context.Context) (map[string]any, error)

	// Metrics and Telemetry are optional; left nil, the controller
	// simply skips recording/tracing. `slater serve` wires both in;
	// `slater run` wires neither.
	Metrics   *metrics.Metrics
	Telemetry *telemetry.Provider

	Log logr.Logger
}

// AgentController executes a single agent's iterations against its
// AgentSpec and StateStore.
type AgentController struct {
	spec    *spec.AgentSpec
	agentID string
	cfg     config.Bootstrap
	store   state.StateStore

	llmFactory func(ctx context.Context, cfg config.LLMConfig) (iterctx.LLMClient, error)
	readInputs func(ctx context.Context) (map[string]any, error)

	metrics   *metrics.Metrics
	telemetry *telemetry.Provider

	log logr.Logger

	iteration int
	lastPhase phase.Phase
}

// New constructs an AgentController and bootstraps its StateStore.
// Bootstrap is idempotent, so re-constructing a controller for a
// crashed/restarted agent is always safe.
func New(ctx context.Context, opts Options) (*AgentController, error) {
	if opts.Spec == nil {
		return nil, fmt.Errorf("controller: Spec is required")
	}
	if opts.StateStore == nil {
		return nil, fmt.Errorf("controller: StateStore is required")
	}
	if opts.AgentID == "" {
		return nil, fmt.Errorf("controller: AgentID is required")
	}

	if err := opts.StateStore.Bootstrap(ctx, opts.AgentID, opts.BootstrapConfig); err != nil {
		return nil, fmt.Errorf("bootstrapping state for agent %q: %w", opts.AgentID, err)
	}

	return &AgentController{
		spec:       opts.Spec,
		agentID:    opts.AgentID,
		cfg:        opts.BootstrapConfig,
		store:      opts.StateStore,
		llmFactory: opts.LLMFactory,
		readInputs: opts.ReadExternalInputs,
		metrics:    opts.Metrics,
		telemetry:  opts.Telemetry,
		log:        opts.Log,
		lastPhase:  opts.Spec.TransitionPolicy.Default,
	}, nil
}

// Result describes why Run returned without error: the agent reached a
// terminal phase, or it paused awaiting user input or further state.
type Result struct {
	Outcome    policy.Outcome
	Iterations int
	LastPhase  phase.Phase
}

// ErrCycleDetected is returned when the agent remains in the same
// Phase for maxSamePhase consecutive iterations without progressing.
var ErrCycleDetected = fmt.Errorf("phase cycle detected")

// ErrMaxIterationsExceeded is returned when the loop runs maxIterations
// times without reaching completion, failure, or a pause.
var ErrMaxIterationsExceeded = fmt.Errorf("exceeded max iterations")

// Run executes iterations until the agent completes, fails, pauses, or
// a termination condition (cycle, max iterations) is hit.
func (c *AgentController) Run(ctx context.Context, maxIterations, maxSamePhase int) (Result, error) {
	var phaseHistory []phase.Phase

	for c.iteration < maxIterations {
		c.iteration++
		c.log.Info("starting iteration", "iteration", c.iteration, "phase", c.lastPhase)

		phaseHistory = append(phaseHistory, c.lastPhase)
		if detectCycle(phaseHistory, maxSamePhase) {
			return Result{Iterations: c.iteration, LastPhase: c.lastPhase},
				fmt.Errorf("%w: stuck in %s for %d+ consecutive iterations", ErrCycleDetected, c.lastPhase, maxSamePhase)
		}

		result, done, err := c.runIteration(ctx)
		if err != nil || done {
			return result, err
		}
		c.lastPhase = result.LastPhase
	}

	return Result{Iterations: c.iteration, LastPhase: c.lastPhase},
		fmt.Errorf("%w (%d)", ErrMaxIterationsExceeded, maxIterations)
}

// runIteration executes one iteration. done is true when the outer
// loop should stop and return result as-is (the agent reached a
// terminal or paused outcome, or the phase couldn't advance); when
// done is false, result.LastPhase carries the phase the next
// iteration should run.
func (c *AgentController) runIteration(ctx context.Context) (result Result, done bool, err error) {
	iterCtx := ctx
	if c.telemetry != nil {
		var span trace.Span
		iterCtx, span = c.telemetry.StartIteration(ctx, c.iteration, string(c.lastPhase))
		defer span.End()
	}
	if c.metrics != nil {
		c.metrics.RecordIteration(c.agentID, string(c.lastPhase))
	}

	view, err := c.buildIterationContext(iterCtx)
	if err != nil {
		return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true, fmt.Errorf("assembling iteration context: %w", err)
	}

	persistent, err := c.store.Load(iterCtx, c.agentID)
	if err != nil {
		return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true, fmt.Errorf("loading state for agent %q: %w", c.agentID, err)
	}
	iterState := state.NewIterationState(persistent)
	iterState.BeginIteration()

	template, ok := c.spec.Procedures[c.lastPhase]
	if !ok {
		return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true,
			fmt.Errorf("no ProcedureTemplate registered for phase %s", c.lastPhase)
	}

	bound, err := template.Materialize(iterState, view)
	if err != nil {
		return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true, fmt.Errorf("materializing procedure for phase %s: %w", c.lastPhase, err)
	}

	byAction := make(map[string]fact.Facts)
	for _, b := range bound {
		actionCtx := iterCtx
		if c.telemetry != nil {
			var actionSpan trace.Span
			actionCtx, actionSpan = c.telemetry.StartAction(iterCtx, b.Name())
			defer actionSpan.End()
		}

		facts, err := b.Execute(actionCtx)
		if c.metrics != nil {
			c.metrics.RecordAction(c.agentID, b.Name(), err != nil)
		}
		if err != nil {
			c.log.Info("action failed, short-circuiting procedure", "action", b.Name(), "error", err.Error())
			break
		}
		iterState.ApplyFacts(facts)
		byAction[b.Name()] = facts
	}

	if len(byAction) > 0 {
		record := state.IterationFacts{
			Iteration: c.iteration,
			Phase:     c.lastPhase,
			ByAction:  byAction,
			Timestamp: timestamp(),
		}
		if err := c.store.Save(iterCtx, c.agentID, record, iterState.PersistentFacts()); err != nil {
			return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true, fmt.Errorf("persisting iteration %d: %w", c.iteration, err)
		}
	}

	// From here on, durable (session + persistent) state only —
	// iteration-scoped facts never influence policy decisions.
	durableFacts := iterState.PersistentFacts()
	durableKeys := make(map[string]struct{})
	for _, entry := range durableFacts.IterFacts() {
		durableKeys[entry.Key] = struct{}{}
	}

	outcome := c.spec.ControlPolicy.Evaluate(durableKeys)
	if c.metrics != nil && outcome != policy.OutcomeAdvance {
		c.metrics.RecordOutcome(c.agentID, outcome)
	}
	switch outcome {
	case policy.OutcomeCompleted, policy.OutcomeFailed, policy.OutcomePausedUser, policy.OutcomePausedState:
		return Result{Outcome: outcome, Iterations: c.iteration, LastPhase: c.lastPhase}, true, nil
	}

	nextPhase, err := c.spec.TransitionPolicy.DerivePhase(durableKeys)
	if err != nil {
		if err == policy.ErrNoTransition {
			return Result{Outcome: policy.OutcomeAdvance, Iterations: c.iteration, LastPhase: c.lastPhase}, true, nil
		}
		return Result{Iterations: c.iteration, LastPhase: c.lastPhase}, true, fmt.Errorf("deriving next phase: %w", err)
	}

	if c.metrics != nil && nextPhase != c.lastPhase {
		c.metrics.RecordTransition(c.agentID, string(c.lastPhase), string(nextPhase))
	}

	return Result{Iterations: c.iteration, LastPhase: nextPhase}, false, nil
}

func detectCycle(phaseHistory []phase.Phase, maxSamePhase int) bool {
	if len(phaseHistory) < maxSamePhase {
		return false
	}
	recent := phaseHistory[len(phaseHistory)-maxSamePhase:]
	first := recent[0]
	for _, p := range recent[1:] {
		if p != first {
			return false
		}
	}
	return true
}

func (c *AgentController) buildIterationContext(ctx context.Context) (iterctx.View, error) {
	inputs := map[string]any{}
	if c.readInputs != nil {
		var err error
		inputs, err = c.readInputs(ctx)
		if err != nil {
			return iterctx.View{}, fmt.Errorf("reading external inputs: %w", err)
		}
	}

	llmClient, err := c.buildLLMClient(ctx)
	if err != nil {
		return iterctx.View{}, err
	}

	iterCtx := iterctx.Context{
		Config: c.cfg.Extra,
		Inputs: inputs,
		LLM:    llmClient,
		Meta: map[string]any{
			"agent_id":   c.agentID,
			"iteration":  c.iteration,
			"started_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	return iterCtx.AsView(), nil
}

func (c *AgentController) buildLLMClient(ctx context.Context) (iterctx.LLMClient, error) {
	if c.cfg.LLM == nil || c.llmFactory == nil {
		return nil, nil
	}
	if _, skip := fakeProviders[c.cfg.LLM.Provider]; skip {
		return nil, nil
	}
	client, err := c.llmFactory(ctx, *c.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("building LLM client for provider %q: %w", c.cfg.LLM.Provider, err)
	}
	return client, nil
}

// timestamp is its own function so tests can't accidentally rely on
// wall-clock ordering across iterations run within the same instant.
func timestamp() time.Time {
	return time.Now().UTC()
}
