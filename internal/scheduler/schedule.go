/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package scheduler computes when an agent is next due to run (cron,
// interval, or trigger-only) and enforces one-run-at-a-time
// concurrency per agent, for `slater serve`'s long-running loop.
package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec describes how often an agent should run. Cron takes priority
// over Interval when both are set; an agent with neither is
// trigger-only and NextRun always returns the zero time.
type Spec struct {
	Cron     string
	Interval string
	Timezone string
	Paused   bool
}

// NextRun computes the next scheduled run time for an agent given its
// last run (zero time if it has never run).
func NextRun(spec Spec, lastRun time.Time, now time.Time) (time.Time, error) {
	if spec.Paused {
		return time.Time{}, nil
	}

	loc, err := loadTimezone(spec.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", spec.Timezone, err)
	}

	if spec.Cron != "" {
		return nextCronRun(spec.Cron, now.In(loc))
	}

	if spec.Interval != "" {
		return nextIntervalRun(spec.Interval, lastRun, now)
	}

	return time.Time{}, nil
}

// IsDue reports whether an agent should run now: it has a schedule,
// hasn't run since its last computed next-run time, and that time has
// passed.
func IsDue(spec Spec, lastRun time.Time, now time.Time) (bool, error) {
	if spec.Paused {
		return false, nil
	}
	if spec.Cron == "" && spec.Interval == "" {
		return false, nil
	}
	if lastRun.IsZero() {
		return true, nil
	}

	nextAfterLast, err := nextRunAfter(spec, lastRun)
	if err != nil {
		return false, err
	}

	return !nextAfterLast.IsZero() && now.After(nextAfterLast), nil
}

func nextCronRun(expr string, now time.Time) (time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

func nextRunAfter(spec Spec, after time.Time) (time.Time, error) {
	loc, err := loadTimezone(spec.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	if spec.Cron != "" {
		return nextCronRun(spec.Cron, after.In(loc))
	}

	if spec.Interval != "" {
		dur, err := time.ParseDuration(spec.Interval)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid interval %q: %w", spec.Interval, err)
		}
		return after.Add(dur), nil
	}

	return time.Time{}, nil
}

// nextIntervalRun computes the next interval-based run. An agent that
// has never run is due immediately.
func nextIntervalRun(interval string, lastRun time.Time, now time.Time) (time.Time, error) {
	dur, err := time.ParseDuration(interval)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid interval %q: %w", interval, err)
	}

	if lastRun.IsZero() {
		return now, nil
	}

	return lastRun.Add(dur), nil
}

func loadTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

// ApplyJitter adds random jitter to a scheduled time so agents with
// identical cron expressions don't all fire at the same instant.
// Jitter is +/-(jitterPercent/2)% of interval, capped at 30s.
func ApplyJitter(scheduled time.Time, interval time.Duration, jitterPercent float64) time.Time {
	if jitterPercent <= 0 {
		jitterPercent = 10.0
	}

	maxJitter := time.Duration(float64(interval) * jitterPercent / 100.0)
	if maxJitter > 30*time.Second {
		maxJitter = 30 * time.Second
	}
	if maxJitter < 100*time.Millisecond {
		return scheduled
	}

	offset := time.Duration(rand.Int63n(int64(maxJitter))) - maxJitter/2
	return scheduled.Add(offset)
}

// ComputeInterval returns the effective scheduling interval for jitter
// calculation, estimating from a cron expression when Interval is unset.
func ComputeInterval(spec Spec) time.Duration {
	if spec.Interval != "" {
		if dur, err := time.ParseDuration(spec.Interval); err == nil {
			return dur
		}
	}

	if spec.Cron != "" {
		now := time.Now()
		if next1, err := nextCronRun(spec.Cron, now); err == nil {
			if next2, err := nextCronRun(spec.Cron, next1); err == nil {
				return next2.Sub(next1)
			}
		}
	}

	return 5 * time.Minute
}
