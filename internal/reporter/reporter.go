/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package reporter delivers a notification describing an
// AgentController.Run's terminal outcome to configured channels
// (Slack, Telegram, generic webhook).
package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
)

// Severity classifies the urgency of a report.
type Severity string

const (
	SeveritySuccess    Severity = "success"
	SeverityInfo       Severity = "info"
	SeverityFailure    Severity = "failure"
	SeverityEscalation Severity = "escalation"
)

// Report is a structured message to be delivered after a Run.
type Report struct {
	// Agent is the agent's ID.
	Agent string

	// Outcome is the terminal ControlPolicy outcome (or advance, when the
	// run stopped because no transition rule matched).
	Outcome policy.Outcome

	// LastPhase is the phase the controller was in when it stopped.
	LastPhase phase.Phase

	// Iterations is the number of iterations executed.
	Iterations int

	// Severity classifies the urgency.
	Severity Severity

	// Summary is a short one-line description.
	Summary string

	// Body is the full report text.
	Body string

	// Timestamp is when the report was generated.
	Timestamp time.Time
}

// Channel is the interface for notification transports.
type Channel interface {
	// Send delivers a report to this channel.
	Send(ctx context.Context, report *Report) error

	// Name returns the channel identifier.
	Name() string

	// Type returns the channel type (slack, telegram, webhook).
	Type() string
}

// Reporter resolves channels from configuration and delivers reports.
type Reporter struct {
	log      logr.Logger
	channels map[string]Channel
}

// New creates a Reporter from a Bootstrap document's channel config.
func New(log logr.Logger, channels map[string]config.ChannelConfig) *Reporter {
	r := &Reporter{
		log:      log.WithName("reporter"),
		channels: make(map[string]Channel),
	}

	for name, spec := range channels {
		ch, err := newChannelFromSpec(name, spec)
		if err != nil {
			log.Error(err, "Failed to create channel", "channel", name)
			continue
		}
		r.channels[name] = ch
	}

	return r
}

// Send delivers a report to a named channel.
func (r *Reporter) Send(ctx context.Context, channelName string, report *Report) error {
	ch, ok := r.channels[channelName]
	if !ok {
		return fmt.Errorf("channel %q not found (available: %s)",
			channelName, strings.Join(r.ChannelNames(), ", "))
	}

	r.log.Info("Sending report",
		"channel", channelName,
		"agent", report.Agent,
		"severity", report.Severity,
	)

	return ch.Send(ctx, report)
}

// SendToAll delivers a report to all registered channels.
func (r *Reporter) SendToAll(ctx context.Context, report *Report) []error {
	var errs []error
	for name, ch := range r.channels {
		if err := ch.Send(ctx, report); err != nil {
			r.log.Error(err, "Failed to send report", "channel", name)
			errs = append(errs, fmt.Errorf("channel %q: %w", name, err))
		}
	}
	return errs
}

// ChannelNames returns all registered channel names.
func (r *Reporter) ChannelNames() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

// HasChannel returns true if a channel is registered.
func (r *Reporter) HasChannel(name string) bool {
	_, ok := r.channels[name]
	return ok
}

// RegisterChannel adds or replaces a channel.
func (r *Reporter) RegisterChannel(name string, ch Channel) {
	r.channels[name] = ch
}

// newChannelFromSpec creates a Channel implementation from a ChannelConfig.
func newChannelFromSpec(name string, spec config.ChannelConfig) (Channel, error) {
	switch spec.Type {
	case "slack":
		return NewSlackChannel(name, spec.Target), nil
	case "telegram":
		return NewTelegramChannel(name, spec.Target, spec.SecretRef), nil
	case "webhook":
		return NewWebhookChannel(name, spec.Target), nil
	default:
		return nil, fmt.Errorf("unsupported channel type: %q", spec.Type)
	}
}

// FromResult builds a Report from a controller Run's terminal outcome.
func FromResult(agentID string, outcome policy.Outcome, lastPhase phase.Phase, iterations int) *Report {
	report := &Report{
		Agent:      agentID,
		Outcome:    outcome,
		LastPhase:  lastPhase,
		Iterations: iterations,
		Timestamp:  time.Now(),
	}

	switch outcome {
	case policy.OutcomeCompleted:
		report.Severity = SeveritySuccess
		report.Summary = "Run completed successfully"
	case policy.OutcomeFailed:
		report.Severity = SeverityFailure
		report.Summary = "Run failed"
	case policy.OutcomePausedUser:
		report.Severity = SeverityEscalation
		report.Summary = "Run paused awaiting user input"
	case policy.OutcomePausedState:
		report.Severity = SeverityInfo
		report.Summary = "Run paused awaiting required state"
	default:
		report.Severity = SeverityInfo
		report.Summary = fmt.Sprintf("Run ended with outcome: %s", outcome)
	}

	report.Body = fmt.Sprintf("Agent %q stopped in phase %q after %d iteration(s).",
		agentID, lastPhase, iterations)

	return report
}

// ShouldReport determines whether a report should be sent based on the
// agent's reporting config and the run's terminal outcome.
func ShouldReport(reporting *config.ReportingConfig, outcome policy.Outcome) (bool, config.ReportAction) {
	if reporting == nil {
		reporting = &config.ReportingConfig{
			OnCompleted:  config.ReportSilent,
			OnFailed:     config.ReportEscalate,
			OnPausedUser: config.ReportNotify,
		}
	}

	switch outcome {
	case policy.OutcomeCompleted:
		action := reporting.OnCompleted
		if action == "" {
			action = config.ReportSilent
		}
		return action != config.ReportSilent, action

	case policy.OutcomeFailed:
		action := reporting.OnFailed
		if action == "" {
			action = config.ReportEscalate
		}
		return action != config.ReportSilent, action

	case policy.OutcomePausedUser:
		action := reporting.OnPausedUser
		if action == "" {
			action = config.ReportNotify
		}
		return action != config.ReportSilent, action

	default:
		return false, config.ReportSilent
	}
}
