package agent

import "time"

const (
	retryBaseDelay    = 10 * time.Second
	retryMaxDelay     = 300 * time.Second
	retryMaxAttempts  = 8
	cleanExitCooldown = 15 * time.Second
)

// RetryState tracks per-channel launch scheduling. A fresh state always
// schedules in the future, never in the past.
type RetryState struct {
	Attempts      int
	NextAttemptAt time.Time
}

// Due reports whether the next attempt time has elapsed.
func (r RetryState) Due(now time.Time) bool {
	return !now.Before(r.NextAttemptAt)
}

// nextRetry advances the backoff after a failure:
// delay = min(2^(attempts-1) * 10s, 300s), attempts capped at 8.
func nextRetry(prev RetryState, now time.Time) RetryState {
	attempts := prev.Attempts + 1
	if attempts > retryMaxAttempts {
		attempts = retryMaxAttempts
	}
	delay := retryBaseDelay << (attempts - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return RetryState{Attempts: attempts, NextAttemptAt: now.Add(delay)}
}

// cooldownRetry resets the state after a clean exit or successful launch so
// the channel is not immediately re-attempted.
func cooldownRetry(now time.Time) RetryState {
	return RetryState{NextAttemptAt: now.Add(cleanExitCooldown)}
}
