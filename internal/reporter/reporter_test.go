/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package reporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"

	"github.com/slaterhq/slater/internal/config"
	"github.com/slaterhq/slater/internal/phase"
	"github.com/slaterhq/slater/internal/policy"
)

func TestFromResultMapsOutcomeToSeverity(t *testing.T) {
	cases := []struct {
		outcome  policy.Outcome
		severity Severity
	}{
		{policy.OutcomeCompleted, SeveritySuccess},
		{policy.OutcomeFailed, SeverityFailure},
		{policy.OutcomePausedUser, SeverityEscalation},
		{policy.OutcomePausedState, SeverityInfo},
	}

	for _, c := range cases {
		report := FromResult("agent-1", c.outcome, phase.Phase("DONE"), 3)
		if report.Severity != c.severity {
			t.Errorf("outcome %s: expected severity %s, got %s", c.outcome, c.severity, report.Severity)
		}
		if report.Agent != "agent-1" || report.Iterations != 3 {
			t.Errorf("unexpected report fields: %+v", report)
		}
	}
}

func TestShouldReport_DefaultsSilenceSuccessEscalateFailure(t *testing.T) {
	ok, _ := ShouldReport(nil, policy.OutcomeCompleted)
	if ok {
		t.Error("expected default to silence completed outcome")
	}

	ok, action := ShouldReport(nil, policy.OutcomeFailed)
	if !ok || action != config.ReportEscalate {
		t.Errorf("expected failed to escalate by default, got ok=%v action=%s", ok, action)
	}
}

func TestShouldReport_HonorsConfiguredAction(t *testing.T) {
	reporting := &config.ReportingConfig{OnCompleted: config.ReportNotify}
	ok, action := ShouldReport(reporting, policy.OutcomeCompleted)
	if !ok || action != config.ReportNotify {
		t.Errorf("expected notify for completed, got ok=%v action=%s", ok, action)
	}
}

func TestShouldReport_AdvanceNeverReports(t *testing.T) {
	ok, _ := ShouldReport(nil, policy.OutcomeAdvance)
	if ok {
		t.Error("expected advance outcome to never report")
	}
}

func TestReporter_SendUnknownChannel(t *testing.T) {
	r := New(logr.Discard(), nil)
	err := r.Send(context.Background(), "missing", &Report{})
	if err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestReporter_RegisterAndSendToMock(t *testing.T) {
	r := New(logr.Discard(), nil)
	mock := NewMockChannel("ops", "mock")
	r.RegisterChannel("ops", mock)

	report := FromResult("agent-1", policy.OutcomeFailed, phase.Phase("START"), 1)
	if err := r.Send(context.Background(), "ops", report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.Reports) != 1 {
		t.Fatalf("expected 1 report recorded, got %d", len(mock.Reports))
	}
}

func TestReporter_NewSkipsUnsupportedChannelType(t *testing.T) {
	r := New(logr.Discard(), map[string]config.ChannelConfig{
		"bad": {Type: "carrier-pigeon", Target: "loft"},
	})
	if r.HasChannel("bad") {
		t.Fatal("expected unsupported channel type to be skipped")
	}
}

func TestWebhookChannel_Send(t *testing.T) {
	var received WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel("ops", server.URL)
	report := FromResult("agent-1", policy.OutcomeCompleted, phase.Phase("DONE"), 2)
	if err := ch.Send(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Agent != "agent-1" || received.Outcome != "completed" {
		t.Errorf("unexpected payload: %+v", received)
	}
}

func TestWebhookChannel_SendErrorsOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := NewWebhookChannel("ops", server.URL)
	report := FromResult("agent-1", policy.OutcomeFailed, phase.Phase("START"), 1)
	if err := ch.Send(context.Background(), report); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}

func TestTelegramChannel_RequiresBotToken(t *testing.T) {
	ch := NewTelegramChannel("ops", "12345", "vault/telegram#token")
	report := FromResult("agent-1", policy.OutcomeFailed, phase.Phase("START"), 1)
	if err := ch.Send(context.Background(), report); err == nil {
		t.Fatal("expected error when bot token unset")
	}
}
