package agent

import (
	"testing"
	"time"
)

func TestBackoffDelaysNonDecreasingAndCapped(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	var state RetryState
	var prevDelay time.Duration

	for i := 0; i < 12; i++ {
		state = nextRetry(state, now)
		if state.NextAttemptAt.Before(now) {
			t.Fatalf("attempt %d scheduled in the past", state.Attempts)
		}
		delay := state.NextAttemptAt.Sub(now)
		if delay < prevDelay {
			t.Fatalf("delay decreased: %v after %v", delay, prevDelay)
		}
		if delay > retryMaxDelay {
			t.Fatalf("delay %v exceeds cap %v", delay, retryMaxDelay)
		}
		if state.Attempts > retryMaxAttempts {
			t.Fatalf("attempts %d exceed cap %d", state.Attempts, retryMaxAttempts)
		}
		prevDelay = delay
	}
	if state.Attempts != retryMaxAttempts {
		t.Fatalf("attempts should saturate at %d, got %d", retryMaxAttempts, state.Attempts)
	}
	if prevDelay != retryMaxDelay {
		t.Fatalf("saturated delay should be %v, got %v", retryMaxDelay, prevDelay)
	}
}

func TestBackoffFirstDelays(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second}

	var state RetryState
	for i, expected := range want {
		state = nextRetry(state, now)
		if got := state.NextAttemptAt.Sub(now); got != expected {
			t.Fatalf("attempt %d delay %v, want %v", i+1, got, expected)
		}
	}
}

func TestCooldownResetsAttempts(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	state := nextRetry(nextRetry(RetryState{}, now), now)

	state = cooldownRetry(now)
	if state.Attempts != 0 {
		t.Fatalf("cooldown should reset attempts, got %d", state.Attempts)
	}
	if got := state.NextAttemptAt.Sub(now); got != cleanExitCooldown {
		t.Fatalf("cooldown delay %v, want %v", got, cleanExitCooldown)
	}
	if state.Due(now) {
		t.Fatal("fresh cooldown state must not be due immediately")
	}
	if !state.Due(now.Add(cleanExitCooldown)) {
		t.Fatal("state should be due once the cooldown elapsed")
	}
}
