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

	"github.com/spf13/cobra"

	"github.com/slaterhq/slater/internal/controller"
	"github.com/slaterhq/slater/internal/reporter"
)

func runCmd() *cobra.Command {
	var (
		agentID       string
		configPath    string
		storeKind     string
		fsRoot        string
		vaultAddr     string
		maxIterations int
		maxSamePhase  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an agent's iteration loop to completion, failure, or a pause",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return fmt.Errorf("--agent-id is required")
			}

			ctx := context.Background()
			log := newLogger()

			agentSpec, err := loadSpec()
			if err != nil {
				return fmt.Errorf("loading agent spec: %w", err)
			}

			bootstrap, err := loadBootstrapConfig(configPath)
			if err != nil {
				return err
			}
			if issues := bootstrap.Validate(); len(issues) > 0 {
				for _, issue := range issues {
					log.Info(issue.String())
				}
			}

			store, err := buildStore(storeKind, fsRoot)
			if err != nil {
				return err
			}

			ctrl, err := controller.New(ctx, controller.Options{
				Spec:            agentSpec,
				AgentID:         agentID,
				BootstrapConfig: bootstrap,
				StateStore:      store,
				LLMFactory:      buildLLMFactory(vaultAddr),
				Log:             log,
			})
			if err != nil {
				return fmt.Errorf("constructing controller: %w", err)
			}

			result, err := ctrl.Run(ctx, maxIterations, maxSamePhase)
			if err != nil {
				return fmt.Errorf("running agent %q: %w", agentID, err)
			}

			fmt.Printf("agent %q finished: outcome=%s phase=%s iterations=%d\n",
				agentID, result.Outcome, result.LastPhase, result.Iterations)

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

			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "unique identifier for this agent's durable state")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the bootstrap config YAML")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "state store backend: memory|fs")
	cmd.Flags().StringVar(&fsRoot, "store-root", "./slater-state", "root directory for the fs state store")
	cmd.Flags().StringVar(&vaultAddr, "vault-addr", "", "Vault address for resolving llm.credential_ref")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 50, "maximum iterations before ErrMaxIterationsExceeded")
	cmd.Flags().IntVar(&maxSamePhase, "max-same-phase", 5, "maximum consecutive iterations in one phase before ErrCycleDetected")

	return cmd
}
