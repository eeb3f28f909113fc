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
)

func historyCmd() *cobra.Command {
	var (
		agentID   string
		storeKind string
		fsRoot    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print an agent's iteration audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return fmt.Errorf("--agent-id is required")
			}

			store, err := buildStore(storeKind, fsRoot)
			if err != nil {
				return err
			}

			records, err := store.History(context.Background(), agentID)
			if err != nil {
				return fmt.Errorf("loading history for agent %q: %w", agentID, err)
			}

			if len(records) == 0 {
				fmt.Printf("agent %q has no recorded iterations\n", agentID)
				return nil
			}

			for _, record := range records {
				fmt.Printf("iteration %d  phase=%s  time=%s\n",
					record.Iteration, record.Phase, record.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
				for action, facts := range record.ByAction {
					serialized, err := facts.Serialize()
					if err != nil {
						return fmt.Errorf("serializing facts for action %q: %w", action, err)
					}
					fmt.Printf("  %s: %v\n", action, serialized)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "agent identifier to load history for")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "state store backend: memory|fs")
	cmd.Flags().StringVar(&fsRoot, "store-root", "./slater-state", "root directory for the fs state store")

	return cmd
}
