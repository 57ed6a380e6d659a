package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"streamvault/internal/capture"
	"streamvault/internal/fileutil"
	"streamvault/internal/intents"
	"streamvault/internal/logging"
)

// ErrRecordingInProgress reports a delete attempt on a live session output.
var ErrRecordingInProgress = errors.New("recording in progress")

// trashDirName is where deleted recordings are parked for reversibility.
const trashDirName = ".trash"

// Options configures the session manager.
type Options struct {
	RecordingsDir  string
	ToolOverride   string
	DefaultQuality string
	// MaxConcurrent caps live sessions; zero means unlimited.
	MaxConcurrent int
	// Intents persists the active set for crash recovery. Optional.
	Intents *intents.Store
	Logger  *slog.Logger
	Clock   func() time.Time
}

// SessionInfo is a point-in-time view of one live session.
type SessionInfo struct {
	Login      string
	Quality    string
	PID        int
	OutputPath string
	StartedAt  time.Time
}

// Manager owns the foreground capture sessions, keyed by normalized login.
type Manager struct {
	recordingsDir  string
	toolOverride   string
	defaultQuality string
	maxConcurrent  int
	store          *intents.Store
	logger         *slog.Logger
	now            func() time.Time

	mu       sync.Mutex
	sessions map[string]*capture.Session
}

// NewManager builds a session manager. No processes are spawned until
// StartRecording is called.
func NewManager(opts Options) (*Manager, error) {
	if opts.RecordingsDir == "" {
		return nil, errors.New("recordings directory required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	quality := opts.DefaultQuality
	if quality == "" {
		quality = "best"
	}
	return &Manager{
		recordingsDir:  opts.RecordingsDir,
		toolOverride:   opts.ToolOverride,
		defaultQuality: quality,
		maxConcurrent:  opts.MaxConcurrent,
		store:          opts.Intents,
		logger:         logging.NewComponentLogger(logger, "recorder"),
		now:            now,
		sessions:       make(map[string]*capture.Session),
	}, nil
}

// StartRecording spawns a capture for target. It returns false with no side
// effect when the channel is already recording, the concurrency cap is
// reached, or the launch fails; failures are logged, never fatal.
func (m *Manager) StartRecording(ctx context.Context, target, channelName, quality string) bool {
	login := capture.NormalizeLogin(target)
	if login == "" {
		m.logger.Warn("start rejected: empty channel login")
		return false
	}
	if quality == "" {
		quality = m.defaultQuality
	}
	display := channelName
	if display == "" {
		display = login
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, live := m.sessions[login]; live && !session.Exited() {
		m.logger.Info("already recording",
			logging.String(logging.FieldChannel, login),
			logging.String(logging.FieldEventType, "start_skipped"),
		)
		return false
	}
	if m.maxConcurrent > 0 && m.liveCountLocked() >= m.maxConcurrent {
		m.logger.Warn("concurrency cap reached",
			logging.Int("cap", m.maxConcurrent),
			logging.String(logging.FieldChannel, login),
			logging.String(logging.FieldEventType, "start_rejected"),
		)
		return false
	}

	tool, err := capture.ResolveTool(m.toolOverride)
	if err != nil {
		m.logger.Warn("capture tool unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install streamlink or set capture.tool_path"),
		)
		return false
	}
	if err := os.MkdirAll(m.recordingsDir, 0o755); err != nil {
		m.logger.Warn("recordings directory unavailable", logging.Error(err))
		return false
	}

	outputPath := filepath.Join(m.recordingsDir, capture.OutputFilename(display, m.now()))
	session, err := capture.Launch(tool, capture.LaunchSpec{
		Target:      capture.TargetForLogin(login),
		Login:       login,
		DisplayName: display,
		Quality:     quality,
		OutputPath:  outputPath,
	})
	if err != nil {
		m.logger.Warn("capture launch failed",
			logging.String(logging.FieldChannel, login),
			logging.Error(err),
			logging.String(logging.FieldEventType, "capture_launch_failed"),
		)
		return false
	}

	m.sessions[login] = session
	m.persistIntentsLocked(ctx)
	go m.watch(login, session)

	m.logger.Info("capture started",
		logging.String(logging.FieldChannel, login),
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int(logging.FieldPID, session.PID()),
		logging.String("output", outputPath),
		logging.String(logging.FieldEventType, "capture_started"),
	)
	return true
}

// StopRecording signals one session, or every session when login is empty.
// It returns how many sessions were signalled; bookkeeping happens in the
// asynchronous reap once each process exits.
func (m *Manager) StopRecording(login string) int {
	normalized := capture.NormalizeLogin(login)

	m.mu.Lock()
	defer m.mu.Unlock()

	stopped := 0
	for key, session := range m.sessions {
		if normalized != "" && key != normalized {
			continue
		}
		if session.Exited() {
			continue
		}
		if err := session.Stop(); err != nil {
			m.logger.Warn("capture stop failed", logging.Error(err), logging.String(logging.FieldChannel, key))
			continue
		}
		stopped++
		m.logger.Info("capture stop requested",
			logging.String(logging.FieldChannel, key),
			logging.String(logging.FieldEventType, "capture_stop_requested"),
		)
	}
	return stopped
}

// ToggleRecording stops the channel when live, starts it otherwise. It
// reports whether a recording is being started.
func (m *Manager) ToggleRecording(ctx context.Context, target, channelName, quality string) bool {
	login := capture.NormalizeLogin(target)
	if m.IsRecording(login) {
		m.StopRecording(login)
		return false
	}
	return m.StartRecording(ctx, target, channelName, quality)
}

// IsRecording reports whether the login has a live session.
func (m *Manager) IsRecording(login string) bool {
	normalized := capture.NormalizeLogin(login)
	m.mu.Lock()
	defer m.mu.Unlock()
	session, live := m.sessions[normalized]
	return live && !session.Exited()
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveCountLocked()
}

// ActiveSessions returns a snapshot of every live session.
func (m *Manager) ActiveSessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for login, session := range m.sessions {
		if session.Exited() {
			continue
		}
		infos = append(infos, SessionInfo{
			Login:      login,
			Quality:    session.Quality,
			PID:        session.PID(),
			OutputPath: session.OutputPath,
			StartedAt:  session.StartedAt,
		})
	}
	return infos
}

// ActiveOutputs returns the output paths of live sessions, used to exclude
// in-flight files from migration and deletion.
func (m *Manager) ActiveOutputs() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	outputs := make(map[string]struct{}, len(m.sessions))
	for _, session := range m.sessions {
		if !session.Exited() {
			outputs[session.OutputPath] = struct{}{}
		}
	}
	return outputs
}

// ConsumeRecoveryIntents returns and clears the intents persisted by a
// previous run. The caller decides whether to resume them.
func (m *Manager) ConsumeRecoveryIntents(ctx context.Context) ([]intents.Intent, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.Consume(ctx)
}

// DeleteRecording removes a finished recording. Live session outputs are
// refused with ErrRecordingInProgress. The file is parked in a trash
// directory for reversibility; a hard delete is the last resort when the
// trash directory itself is unusable.
func (m *Manager) DeleteRecording(path string) error {
	m.mu.Lock()
	for _, session := range m.sessions {
		if !session.Exited() && session.OutputPath == path {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrRecordingInProgress, filepath.Base(path))
		}
	}
	m.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat recording: %w", err)
	}

	trashDir := filepath.Join(m.recordingsDir, trashDirName)
	if err := os.MkdirAll(trashDir, 0o755); err == nil {
		trashed := filepath.Join(trashDir, m.now().UTC().Format("20060102-150405")+"_"+filepath.Base(path))
		if err := fileutil.MoveFile(path, trashed); err == nil {
			m.logger.Info("recording moved to trash",
				logging.String("path", path),
				logging.String("trash", trashed),
				logging.String(logging.FieldEventType, "recording_trashed"),
			)
			return nil
		}
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	m.logger.Info("recording deleted",
		logging.String("path", path),
		logging.String(logging.FieldEventType, "recording_deleted"),
	)
	return nil
}

// watch reaps the session once its process exits. Unexpected exits drive the
// same path as explicit stops.
func (m *Manager) watch(login string, session *capture.Session) {
	<-session.Done()

	m.mu.Lock()
	if current, tracked := m.sessions[login]; tracked && current == session {
		delete(m.sessions, login)
	}
	m.persistIntentsLocked(context.Background())
	m.mu.Unlock()

	if exitErr := session.ExitErr(); exitErr != nil {
		m.logger.Warn("capture exited with failure",
			logging.String(logging.FieldChannel, login),
			logging.Error(exitErr),
			logging.String("stderr_tail", session.StderrTail()),
			logging.String(logging.FieldEventType, "capture_failed"),
		)
		return
	}
	m.logger.Info("capture finished",
		logging.String(logging.FieldChannel, login),
		logging.String("output", session.OutputPath),
		logging.String(logging.FieldEventType, "capture_finished"),
	)
}

func (m *Manager) liveCountLocked() int {
	count := 0
	for _, session := range m.sessions {
		if !session.Exited() {
			count++
		}
	}
	return count
}

// persistIntentsLocked mirrors the live set into the recovery store. Callers
// hold m.mu. An empty set empties the store.
func (m *Manager) persistIntentsLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	set := make([]intents.Intent, 0, len(m.sessions))
	for login, session := range m.sessions {
		if session.Exited() {
			continue
		}
		set = append(set, intents.Intent{
			Target:       session.Target,
			ChannelLogin: login,
			ChannelName:  session.DisplayName,
			Quality:      session.Quality,
			CapturedAt:   session.StartedAt,
		})
	}
	if err := m.store.Replace(ctx, set); err != nil {
		m.logger.Warn("recovery intents not persisted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory for write access"),
		)
	}
}
