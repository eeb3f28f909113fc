/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package config loads and validates the YAML bootstrap document an
// agent is started with.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RepoConfig describes the repository an agent operates against.
type RepoConfig struct {
	Root   string   `yaml:"root"`
	Ignore []string `yaml:"ignore"`
}

// LLMConfig describes how to reach the model backing an agent's
// reasoning actions.
type LLMConfig struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	CredentialRef string  `yaml:"credential_ref,omitempty"`
}

// ChannelConfig describes a single notification channel an agent can
// report to.
type ChannelConfig struct {
	Type      string `yaml:"type"` // "slack", "telegram", "webhook"
	Target    string `yaml:"target"`
	SecretRef string `yaml:"secret_ref,omitempty"`
}

// ReportAction controls how a reporter reacts to a given outcome.
type ReportAction string

const (
	ReportSilent   ReportAction = "silent"
	ReportLog      ReportAction = "log"
	ReportNotify   ReportAction = "notify"
	ReportEscalate ReportAction = "escalate"
)

// ReportingConfig selects, per terminal outcome, whether and how a
// report should be delivered.
type ReportingConfig struct {
	OnCompleted  ReportAction `yaml:"on_completed,omitempty"`
	OnFailed     ReportAction `yaml:"on_failed,omitempty"`
	OnPausedUser ReportAction `yaml:"on_paused_user,omitempty"`
}

// ScheduleConfig describes when `slater serve` should trigger a
// recurring run of the agent. Cron takes priority over Interval when
// both are set, mirroring internal/scheduler's own precedence.
type ScheduleConfig struct {
	Cron     string `yaml:"cron,omitempty"`
	Interval string `yaml:"interval,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`
	Paused   bool   `yaml:"paused,omitempty"`
}

// Bootstrap is the YAML document an agent is started with. Unknown
// top-level keys are preserved, not rejected — mirroring pydantic's
// extra="allow" in the original implementation.
type Bootstrap struct {
	Goal      string                   `yaml:"goal"`
	Repo      *RepoConfig              `yaml:"repo,omitempty"`
	LLM       *LLMConfig               `yaml:"llm,omitempty"`
	Channels  map[string]ChannelConfig `yaml:"channels,omitempty"`
	Reporting *ReportingConfig         `yaml:"reporting,omitempty"`
	Schedule  *ScheduleConfig          `yaml:"schedule,omitempty"`

	// Extra holds any top-level key not recognized above.
	Extra map[string]any `yaml:"-"`
}

// FromYAML loads a Bootstrap document from path.
func FromYAML(path string) (Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("reading bootstrap config %q: %w", path, err)
	}
	return FromYAMLBytes(data)
}

// FromYAMLBytes parses a Bootstrap document from raw YAML bytes.
func FromYAMLBytes(data []byte) (Bootstrap, error) {
	var cfg Bootstrap
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Bootstrap{}, fmt.Errorf("parsing bootstrap config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Bootstrap{}, fmt.Errorf("parsing bootstrap config: %w", err)
	}
	extra := make(map[string]any)
	for k, v := range raw {
		switch k {
		case "goal", "repo", "llm", "channels", "reporting", "schedule":
			continue
		default:
			extra[k] = v
		}
	}
	cfg.Extra = extra

	return cfg, nil
}

// Issue is a single configuration validation finding.
type Issue struct {
	Severity string // "error" or "warning"
	Message  string
}

func (i Issue) String() string {
	if i.Severity == "error" {
		return fmt.Sprintf("ERROR: %s", i.Message)
	}
	return fmt.Sprintf("WARNING: %s", i.Message)
}

// Validate runs structural checks on a Bootstrap document and returns
// every finding; an empty slice means the document is clean.
func (b Bootstrap) Validate() []Issue {
	var issues []Issue

	if b.Goal == "" {
		issues = append(issues, Issue{Severity: "warning", Message: "bootstrap config has no goal set"})
	}

	if b.Repo != nil && b.Repo.Root == "" {
		issues = append(issues, Issue{Severity: "error", Message: "repo.root must not be empty when repo is set"})
	}

	if b.LLM != nil {
		if b.LLM.Provider == "" {
			issues = append(issues, Issue{Severity: "error", Message: "llm.provider must not be empty when llm is set"})
		}
		if b.LLM.Model == "" && !isFakeProvider(b.LLM.Provider) {
			issues = append(issues, Issue{Severity: "warning", Message: "llm.model is empty"})
		}
	}

	return issues
}

func isFakeProvider(provider string) bool {
	switch provider {
	case "fake", "test", "mock":
		return true
	default:
		return false
	}
}
