/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/controller"
	"github.com/slaterhq/slater/internal/mcpserver"
	"github.com/slaterhq/slater/internal/metrics"
	"github.com/slaterhq/slater/internal/reporter"
	"github.com/slaterhq/slater/internal/scheduler"
	"github.com/slaterhq/slater/internal/spec"
	"github.com/slaterhq/slater/internal/state"
	"github.com/slaterhq/slater/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		agentID       string
		configPath    string
		storeKind     string
		fsRoot        string
		vaultAddr     string
		metricsAddr   string
		otlpEndpoint  string
		maxIterations int
		maxSamePhase  int
		pollInterval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, metrics endpoint, and MCP server for one agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return fmt.Errorf("--agent-id is required")
			}

			ctx := cmd.Context()
			log := newLogger()

			agentSpec, err := loadSpec()
			if err != nil {
				return fmt.Errorf("loading agent spec: %w", err)
			}

			bootstrap, err := loadBootstrapConfig(configPath)
			if err != nil {
				return err
			}

			store, err := buildStore(storeKind, fsRoot)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			m, err := metrics.New(reg)
			if err != nil {
				return fmt.Errorf("registering metrics: %w", err)
			}

			tel, err := telemetry.New(ctx, telemetry.Config{
				ServiceName:  "slater",
				AgentID:      agentID,
				OTLPEndpoint: otlpEndpoint,
				Enabled:      otlpEndpoint != "",
			})
			if err != nil {
				return fmt.Errorf("constructing telemetry provider: %w", err)
			}
			defer tel.Shutdown(ctx)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			httpSrv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				log.Info("serving metrics", "addr", metricsAddr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error(err, "metrics server exited")
				}
			}()
			defer httpSrv.Shutdown(ctx)

			mcpSrv := mcpserver.New(store)
			go func() {
				if err := mcpSrv.Run(ctx); err != nil {
					log.Error(err, "mcp server exited")
				}
			}()

			tracker := scheduler.NewRunTracker()
			schedSpec := scheduleSpecFrom(bootstrap)

			var lastRun time.Time
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()

			log.Info("scheduler started", "agent_id", agentID, "poll_interval", pollInterval)
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					due, err := scheduler.IsDue(schedSpec, lastRun, now)
					if err != nil {
						log.Error(err, "evaluating schedule")
						continue
					}
					if !due {
						continue
					}
					if !tracker.TryStart(agentID, fmt.Sprintf("%s-%d", agentID, now.UnixNano())) {
						log.Info("skipping tick, run already in flight", "agent_id", agentID)
						continue
					}

					lastRun = now
					result, err := runOnce(ctx, agentSpec, agentID, bootstrap, store, m, tel, log, vaultAddr, maxIterations, maxSamePhase)
					tracker.Complete(agentID)
					if err != nil {
						log.Error(err, "scheduled run failed", "agent_id", agentID)
						continue
					}

					rep := reporter.New(log, bootstrap.Channels)
					report := reporter.FromResult(agentID, result.Outcome, result.LastPhase, result.Iterations)
					if ok, action := reporter.ShouldReport(bootstrap.Reporting, result.Outcome); ok {
						log.Info("dispatching report", "action", action)
						for _, name := range rep.ChannelNames() {
							if err := rep.Send(ctx, name, report); err != nil {
								log.Error(err, "sending report", "channel", name)
							}
						}
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "unique identifier for this agent's durable state")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the bootstrap config YAML")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "state store backend: memory|fs")
	cmd.Flags().StringVar(&fsRoot, "store-root", "./slater-state", "root directory for the fs state store")
	cmd.Flags().StringVar(&vaultAddr, "vault-addr", "", "Vault address for resolving llm.credential_ref")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces; empty disables tracing")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 50, "maximum iterations per run before ErrMaxIterationsExceeded")
	cmd.Flags().IntVar(&maxSamePhase, "max-same-phase", 5, "maximum consecutive iterations in one phase before ErrCycleDetected")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 30*time.Second, "how often to check whether the schedule is due")

	return cmd
}

func scheduleSpecFrom(bootstrap config.Bootstrap) scheduler.Spec {
	if bootstrap.Schedule == nil {
		return scheduler.Spec{}
	}
	return scheduler.Spec{
		Cron:     bootstrap.Schedule.Cron,
		Interval: bootstrap.Schedule.Interval,
		Timezone: bootstrap.Schedule.Timezone,
		Paused:   bootstrap.Schedule.Paused,
	}
}

// runOnce builds a fresh AgentController for this tick and runs it to
// completion, failure, or a pause. A new controller per tick keeps the
// scheduler stateless across runs; the StateStore carries the durable
// facts a restart needs.
func runOnce(
	ctx context.Context,
	agentSpec *spec.AgentSpec,
	agentID string,
	bootstrap config.Bootstrap,
	store state.StateStore,
	m *metrics.Metrics,
	tel *telemetry.Provider,
	log logr.Logger,
	vaultAddr string,
	maxIterations, maxSamePhase int,
) (controller.Result, error) {
	ctrl, err := controller.New(ctx, controller.Options{
		Spec:            agentSpec,
		AgentID:         agentID,
		BootstrapConfig: bootstrap,
		StateStore:      store,
		LLMFactory:      buildLLMFactory(vaultAddr),
		Metrics:         m,
		Telemetry:       tel,
		Log:             log,
	})
	if err != nil {
		return controller.Result{}, fmt.Errorf("constructing controller: %w", err)
	}

	return ctrl.Run(ctx, maxIterations, maxSamePhase)
}
