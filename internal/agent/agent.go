package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"streamvault/internal/capture"
	"streamvault/internal/logging"
	"streamvault/internal/policy"
)

// DefaultPollInterval is the tick cadence when the desired state does not
// configure one.
const DefaultPollInterval = 2 * time.Second

// Options configures the reconciler agent.
type Options struct {
	// StatePath is the desired-state file to poll.
	StatePath string
	// LockDir holds the per-session lock files.
	LockDir string
	// InstanceLockPath guards against a second agent on the same state.
	// Empty disables the guard.
	InstanceLockPath string
	Logger           *slog.Logger
	// Clock is injectable for deterministic scheduling in tests.
	Clock func() time.Time
}

// Agent is the single-threaded reconciliation loop. All maps are owned by
// the loop goroutine; nothing mutates them concurrently.
type Agent struct {
	statePath string
	lockDir   string
	logger    *slog.Logger
	now       func() time.Time
	instance  *flock.Flock

	state    policy.DesiredState
	stateMod time.Time

	sessions map[string]*capture.Session
	retries  map[string]RetryState
}

// New builds an agent from options. Run must be called to start reconciling.
func New(opts Options) (*Agent, error) {
	if opts.StatePath == "" {
		return nil, errors.New("desired-state path required")
	}
	if opts.LockDir == "" {
		return nil, errors.New("lock directory required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	a := &Agent{
		statePath: opts.StatePath,
		lockDir:   opts.LockDir,
		logger:    logging.NewComponentLogger(logger, "agent"),
		now:       now,
		sessions:  make(map[string]*capture.Session),
		retries:   make(map[string]RetryState),
	}
	if opts.InstanceLockPath != "" {
		a.instance = flock.New(opts.InstanceLockPath)
	}
	return a, nil
}

// Run drives the reconciliation loop until ctx is cancelled. The lock
// directory is wiped before the first tick; any lock present is stale because
// no capture process survives the agent's own death.
func (a *Agent) Run(ctx context.Context) error {
	if a.instance != nil {
		ok, err := a.instance.TryLock()
		if err != nil {
			return fmt.Errorf("acquire agent lock: %w", err)
		}
		if !ok {
			return errors.New("another agent instance is already running")
		}
		defer func() { _ = a.instance.Unlock() }()
	}

	if err := clearLockDir(a.lockDir); err != nil {
		return err
	}
	a.logger.Info("agent started",
		logging.String("state_path", a.statePath),
		logging.String(logging.FieldEventType, "agent_started"),
	)

	interval := DefaultPollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping",
				logging.String(logging.FieldEventType, "agent_stopped"),
			)
			return nil
		case <-ticker.C:
			a.tick()
			if next := a.state.PollInterval(DefaultPollInterval); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// tick runs one reload → reap → reconcile pass.
func (a *Agent) tick() {
	a.reload()
	a.reap()
	a.reconcile()
}

// reload re-reads the desired-state file when its modification time advanced.
// Decode failures are logged; the last-known-good state stays in effect.
func (a *Agent) reload() {
	state, mod, err := policy.LoadStateIfModified(a.statePath, a.stateMod)
	if err != nil {
		a.logger.Warn("desired state unreadable; keeping previous state",
			logging.Error(err),
			logging.String(logging.FieldEventType, "desired_state_invalid"),
			logging.String(logging.FieldErrorHint, "fix the desired-state file; the agent keeps running"),
		)
		return
	}
	if state == nil {
		return
	}
	a.state = *state
	a.stateMod = mod
	a.logger.Info("desired state reloaded",
		logging.Bool("enabled", state.Enabled),
		logging.Int("channels", len(state.Channels)),
		logging.String(logging.FieldEventType, "desired_state_reloaded"),
	)
}

// reap removes bookkeeping and lock files for exited sessions and schedules
// the channel's next attempt.
func (a *Agent) reap() {
	now := a.now()
	for login, session := range a.sessions {
		if !session.Exited() {
			continue
		}
		delete(a.sessions, login)
		if err := removeLock(a.lockDir, login); err != nil {
			a.logger.Warn("stale lock not removed", logging.Error(err), logging.String(logging.FieldChannel, login))
		}

		if exitErr := session.ExitErr(); exitErr != nil {
			state := nextRetry(a.retries[login], now)
			a.retries[login] = state
			a.logger.Warn("capture exited with failure",
				logging.String(logging.FieldChannel, login),
				logging.Error(exitErr),
				logging.String("stderr_tail", session.StderrTail()),
				logging.Int("attempts", state.Attempts),
				logging.Time("next_attempt_at", state.NextAttemptAt),
				logging.String(logging.FieldEventType, "capture_failed"),
			)
			continue
		}
		a.retries[login] = cooldownRetry(now)
		a.logger.Info("capture exited cleanly",
			logging.String(logging.FieldChannel, login),
			logging.String("output", session.OutputPath),
			logging.String(logging.FieldEventType, "capture_finished"),
		)
	}
}

// reconcile closes the gap between desired channels and live sessions.
func (a *Agent) reconcile() {
	desired := policy.NormalizeChannels(a.state.Channels)
	desiredSet := make(map[string]policy.DesiredChannel, len(desired))
	for _, ch := range desired {
		desiredSet[ch.Login] = ch
	}

	if !a.state.Enabled {
		for login, session := range a.sessions {
			a.stopSession(login, session, "recording disabled")
		}
		return
	}
	for login, session := range a.sessions {
		if _, wanted := desiredSet[login]; !wanted {
			a.stopSession(login, session, "channel no longer desired")
		}
	}
	if len(desired) == 0 {
		return
	}

	tool, err := capture.ResolveTool(a.state.CaptureToolPath)
	if err != nil {
		a.logger.Warn("capture tool unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "capture_tool_missing"),
			logging.String(logging.FieldErrorHint, "install streamlink or set captureToolPath"),
		)
		return
	}
	if a.state.RecordingsDirectory == "" {
		a.logger.Warn("desired state has no recordings directory; nothing launched",
			logging.String(logging.FieldEventType, "desired_state_incomplete"),
		)
		return
	}
	if err := os.MkdirAll(a.state.RecordingsDirectory, 0o755); err != nil {
		a.logger.Warn("recordings directory unavailable", logging.Error(err))
		return
	}

	now := a.now()
	quality := a.state.Quality
	if quality == "" {
		quality = "best"
	}
	for _, ch := range desired {
		if _, live := a.sessions[ch.Login]; live {
			continue
		}
		if retry, tracked := a.retries[ch.Login]; tracked && !retry.Due(now) {
			continue
		}
		a.launch(tool, ch, quality, now)
	}
}

func (a *Agent) launch(tool string, ch policy.DesiredChannel, quality string, now time.Time) {
	outputPath := filepath.Join(a.state.RecordingsDirectory, capture.OutputFilename(ch.DisplayName, now))
	session, err := capture.Launch(tool, capture.LaunchSpec{
		Target:      capture.TargetForLogin(ch.Login),
		Login:       ch.Login,
		DisplayName: ch.DisplayName,
		Quality:     quality,
		OutputPath:  outputPath,
	})
	if err != nil {
		state := nextRetry(a.retries[ch.Login], now)
		a.retries[ch.Login] = state
		a.logger.Warn("capture launch failed",
			logging.String(logging.FieldChannel, ch.Login),
			logging.Error(err),
			logging.Int("attempts", state.Attempts),
			logging.Time("next_attempt_at", state.NextAttemptAt),
			logging.String(logging.FieldEventType, "capture_launch_failed"),
		)
		return
	}

	a.sessions[ch.Login] = session
	a.retries[ch.Login] = cooldownRetry(now)
	if err := writeLock(a.lockDir, SessionLock{
		Login:      ch.Login,
		PID:        session.PID(),
		OutputPath: outputPath,
		StartedAt:  session.StartedAt,
	}); err != nil {
		a.logger.Warn("session lock not written", logging.Error(err), logging.String(logging.FieldChannel, ch.Login))
	}
	a.logger.Info("capture started",
		logging.String(logging.FieldChannel, ch.Login),
		logging.Int(logging.FieldPID, session.PID()),
		logging.String("output", outputPath),
		logging.String(logging.FieldEventType, "capture_started"),
	)
}

func (a *Agent) stopSession(login string, session *capture.Session, reason string) {
	if err := session.Stop(); err != nil {
		a.logger.Warn("capture stop failed", logging.Error(err), logging.String(logging.FieldChannel, login))
		return
	}
	// Bookkeeping and lock removal happen in the reap once the exit is seen.
	a.logger.Info("capture stop requested",
		logging.String(logging.FieldChannel, login),
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "capture_stop_requested"),
	)
}
