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

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/demoagent"
	"github.com/slaterhq/slater/internal/iterctx"
	"github.com/slaterhq/slater/internal/llmclient"
	"github.com/slaterhq/slater/internal/secrets"
	"github.com/slaterhq/slater/internal/spec"
	"github.com/slaterhq/slater/internal/state"
)

// newLogger builds a structured logr.Logger backed by zap, development
// mode for readable console output.
func newLogger() logr.Logger {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zl)
}

// loadSpec returns the reference agent spec. A future revision may
// accept a --spec flag selecting among several registered specs; today
// slater ships exactly one.
func loadSpec() (*spec.AgentSpec, error) {
	return demoagent.New()
}

// loadBootstrapConfig reads a Bootstrap YAML document from path, or
// returns an empty one if path is unset.
func loadBootstrapConfig(path string) (config.Bootstrap, error) {
	if path == "" {
		return config.Bootstrap{}, nil
	}
	return config.FromYAML(path)
}

// buildStore constructs a StateStore for the given --store flag value.
func buildStore(kind, fsRoot string) (state.StateStore, error) {
	switch kind {
	case "", "memory":
		return state.NewInMemoryStore(), nil
	case "fs":
		return state.NewFileSystemStore(fsRoot)
	default:
		return nil, fmt.Errorf("unsupported --store %q (want memory|fs)", kind)
	}
}

// buildLLMFactory resolves an LLMConfig's credential (via Vault, when
// CredentialRef is set) and constructs an llmclient.Client.
func buildLLMFactory(vaultAddr string) func(ctx context.Context, cfg config.LLMConfig) (iterctx.LLMClient, error) {
	return func(ctx context.Context, cfg config.LLMConfig) (iterctx.LLMClient, error) {
		apiKey := ""
		if cfg.CredentialRef != "" {
			sc, err := secrets.NewClient(secrets.Config{Address: vaultAddr})
			if err != nil {
				return nil, fmt.Errorf("building secrets client: %w", err)
			}
			apiKey, err = sc.Resolve(ctx, cfg.CredentialRef)
			if err != nil {
				return nil, fmt.Errorf("resolving credential %q: %w", cfg.CredentialRef, err)
			}
		}

		return llmclient.New(llmclient.Config{
			BaseURL:     "https://api.openai.com/v1",
			APIKey:      apiKey,
			Temperature: cfg.Temperature,
		})
	}
}
