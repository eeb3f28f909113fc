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

func printOK(msg string)      { fmt.Printf("✓ %s\n", msg) }
func printError(msg string)   { fmt.Printf("✗ %s\n", msg) }
func printWarning(msg string) { fmt.Printf("! %s\n", msg) }

func validateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a bootstrap config and the reference agent spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadSpec(); err != nil {
				printError(fmt.Sprintf("agent spec: %v", err))
				return err
			}
			printOK("agent spec construction (phases, procedures, policies, fact scopes)")

			if configPath == "" {
				printWarning("no --config given, skipping bootstrap config validation")
				return nil
			}

			bootstrap, err := loadBootstrapConfig(configPath)
			if err != nil {
				printError(err.Error())
				return err
			}

			issues := bootstrap.Validate()
			if len(issues) == 0 {
				printOK(fmt.Sprintf("bootstrap config %q", configPath))
				return nil
			}

			var hasError bool
			for _, issue := range issues {
				if issue.Severity == "error" {
					hasError = true
					printError(issue.Message)
				} else {
					printWarning(issue.Message)
				}
			}
			if hasError {
				return fmt.Errorf("bootstrap config %q failed validation", configPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the bootstrap config YAML")
	return cmd
}
