/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package scheduler

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ts
}

func TestNextRun_CronTakesPriorityOverInterval(t *testing.T) {
	now := mustParse(t, "2026-07-29T10:00:00Z")
	next, err := NextRun(Spec{Cron: "0 12 * * *", Interval: "1h"}, time.Time{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := mustParse(t, "2026-07-29T12:00:00Z")
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRun_Paused(t *testing.T) {
	now := mustParse(t, "2026-07-29T10:00:00Z")
	next, err := NextRun(Spec{Cron: "0 12 * * *", Paused: true}, time.Time{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.IsZero() {
		t.Fatalf("expected zero time for paused agent, got %v", next)
	}
}

func TestNextRun_InvalidTimezone(t *testing.T) {
	_, err := NextRun(Spec{Cron: "0 12 * * *", Timezone: "Not/ARealZone"}, time.Time{}, time.Now())
	if err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestNextRun_IntervalNeverRun(t *testing.T) {
	now := mustParse(t, "2026-07-29T10:00:00Z")
	next, err := NextRun(Spec{Interval: "30m"}, time.Time{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(now) {
		t.Fatalf("expected immediate run for never-run agent, got %v", next)
	}
}

func TestNextRun_IntervalFromLastRun(t *testing.T) {
	lastRun := mustParse(t, "2026-07-29T10:00:00Z")
	now := mustParse(t, "2026-07-29T10:10:00Z")
	next, err := NextRun(Spec{Interval: "30m"}, lastRun, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := mustParse(t, "2026-07-29T10:30:00Z")
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRun_TriggerOnly(t *testing.T) {
	next, err := NextRun(Spec{}, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.IsZero() {
		t.Fatalf("expected zero time for trigger-only agent, got %v", next)
	}
}

func TestIsDue_NeverRun(t *testing.T) {
	due, err := IsDue(Spec{Interval: "30m"}, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due {
		t.Fatal("expected never-run agent to be due")
	}
}

func TestIsDue_RecentRunNotYetDue(t *testing.T) {
	lastRun := mustParse(t, "2026-07-29T10:00:00Z")
	now := mustParse(t, "2026-07-29T10:05:00Z")
	due, err := IsDue(Spec{Interval: "30m"}, lastRun, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due {
		t.Fatal("expected agent not yet due")
	}
}

func TestIsDue_PastDue(t *testing.T) {
	lastRun := mustParse(t, "2026-07-29T10:00:00Z")
	now := mustParse(t, "2026-07-29T10:45:00Z")
	due, err := IsDue(Spec{Interval: "30m"}, lastRun, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !due {
		t.Fatal("expected agent to be past due")
	}
}

func TestIsDue_Paused(t *testing.T) {
	due, err := IsDue(Spec{Interval: "30m", Paused: true}, time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due {
		t.Fatal("expected paused agent to never be due")
	}
}

func TestApplyJitter_Bounded(t *testing.T) {
	scheduled := mustParse(t, "2026-07-29T10:00:00Z")
	for i := 0; i < 50; i++ {
		jittered := ApplyJitter(scheduled, time.Minute, 10.0)
		diff := jittered.Sub(scheduled)
		if diff < -30*time.Second || diff > 30*time.Second {
			t.Fatalf("jitter out of bounds: %v", diff)
		}
	}
}

func TestApplyJitter_SmallIntervalUnchanged(t *testing.T) {
	scheduled := mustParse(t, "2026-07-29T10:00:00Z")
	jittered := ApplyJitter(scheduled, time.Millisecond, 10.0)
	if !jittered.Equal(scheduled) {
		t.Fatalf("expected no jitter for sub-threshold interval, got %v", jittered)
	}
}

func TestComputeInterval_FromInterval(t *testing.T) {
	got := ComputeInterval(Spec{Interval: "45m"})
	if got != 45*time.Minute {
		t.Fatalf("expected 45m, got %v", got)
	}
}

func TestComputeInterval_DefaultsWhenUnset(t *testing.T) {
	got := ComputeInterval(Spec{})
	if got != 5*time.Minute {
		t.Fatalf("expected 5m default, got %v", got)
	}
}

func TestRunTracker_TryStartAndComplete(t *testing.T) {
	tr := NewRunTracker()

	if !tr.TryStart("agent-1", "run-1") {
		t.Fatal("expected first TryStart to succeed")
	}
	if tr.TryStart("agent-1", "run-2") {
		t.Fatal("expected second TryStart for same agent to fail")
	}
	if !tr.IsRunning("agent-1") {
		t.Fatal("expected agent-1 to be running")
	}

	tr.Complete("agent-1")
	if tr.IsRunning("agent-1") {
		t.Fatal("expected agent-1 to no longer be running")
	}
	if !tr.TryStart("agent-1", "run-3") {
		t.Fatal("expected TryStart to succeed after Complete")
	}
}

func TestRunTracker_CleanStale(t *testing.T) {
	tr := NewRunTracker()
	tr.TryStart("agent-1", "run-1")

	cleaned := tr.CleanStale(-time.Second)
	if cleaned != 1 {
		t.Fatalf("expected 1 cleaned entry, got %d", cleaned)
	}
	if tr.IsRunning("agent-1") {
		t.Fatal("expected agent-1 to no longer be tracked as running")
	}
}

func TestRunTracker_InFlightCount(t *testing.T) {
	tr := NewRunTracker()
	tr.TryStart("agent-1", "run-1")
	tr.TryStart("agent-2", "run-2")
	if got := tr.InFlightCount(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}
