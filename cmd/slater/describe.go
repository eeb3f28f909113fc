/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func describeCmd() *cobra.Command {
	var mermaid bool

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the reference agent spec's phases, procedures, and policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			agentSpec, err := loadSpec()
			if err != nil {
				return fmt.Errorf("loading agent spec: %w", err)
			}

			fmt.Print(agentSpec.Describe())
			if mermaid {
				fmt.Println()
				fmt.Print(agentSpec.Mermaid())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "also print a Mermaid state diagram of the transition policy")
	return cmd
}
