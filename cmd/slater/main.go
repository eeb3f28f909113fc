/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Command slater runs, validates, and introspects declarative,
// iteration-driven agents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slater",
	Short: "Run and inspect declarative, iteration-driven agents",
	Long: `slater drives an AgentSpec's deterministic iteration loop: load
durable facts, execute the current phase's procedure, persist what
changed, then evaluate control and transition policies to decide
whether to continue, pause, or stop.`,
}

func main() {
	rootCmd.AddCommand(
		runCmd(),
		validateCmd(),
		describeCmd(),
		historyCmd(),
		serveCmd(),
		mcpServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
