/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry wires an agent controller's iteration loop into
// OpenTelemetry distributed tracing: one span per iteration, with
// child spans per action, exported over OTLP/gRPC.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the tracer provider.
type Config struct {
	ServiceName  string
	AgentID      string
	OTLPEndpoint string
	SampleRate   float64
	BatchTimeout time.Duration
	Insecure     bool
	Enabled      bool
}

// Provider owns the process's TracerProvider and a tracer scoped to
// agent iterations.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New constructs a Provider. If cfg.Enabled is false, it returns a
// Provider whose StartIteration/StartAction are no-ops (a Tracer
// backed by otel's global no-op implementation), so callers never need
// to branch on whether telemetry is on.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg, tracer: otel.Tracer("slater.controller")}, nil
	}

	if cfg.OTLPEndpoint == "" {
		return nil, fmt.Errorf("telemetry: OTLPEndpoint is required when Enabled")
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 5 * time.Second
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		config:         cfg,
		tracerProvider: tp,
		tracer:         tp.Tracer("slater.controller"),
	}, nil
}

// Shutdown flushes and stops the tracer provider. Safe to call on a
// disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// StartIteration opens a span covering one controller iteration.
func (p *Provider) StartIteration(ctx context.Context, iteration int, ph string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "iteration",
		trace.WithAttributes(
			attribute.String("slater.agent_id", p.config.AgentID),
			attribute.Int("slater.iteration", iteration),
			attribute.String("slater.phase", ph),
		),
	)
}

// StartAction opens a span covering one action's execution within an
// iteration. Callers must end the returned span themselves.
func (p *Provider) StartAction(ctx context.Context, actionName string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "action",
		trace.WithAttributes(attribute.String("slater.action", actionName)),
	)
}
