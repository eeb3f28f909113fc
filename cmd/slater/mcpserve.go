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

	"github.com/slaterhq/slater/internal/mcpserver"
)

func mcpServeCmd() *cobra.Command {
	var (
		storeKind string
		fsRoot    string
	)

	cmd := &cobra.Command{
		Use:   "mcp-serve",
		Short: "Serve an agent's durable facts and history read-only over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore(storeKind, fsRoot)
			if err != nil {
				return err
			}

			srv := mcpserver.New(store)
			if err := srv.Run(context.Background()); err != nil {
				return fmt.Errorf("mcp server exited: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storeKind, "store", "memory", "state store backend: memory|fs")
	cmd.Flags().StringVar(&fsRoot, "store-root", "./slater-state", "root directory for the fs state store")

	return cmd
}
