package capture

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// stderrTailLimit bounds the retained stderr so a chatty capture process
// cannot grow memory without bound.
const stderrTailLimit = 16 * 1024

// LaunchSpec describes one capture process to spawn.
type LaunchSpec struct {
	Target      string
	Login       string
	DisplayName string
	Quality     string
	OutputPath  string
}

// Session is one live capture process with its owned resources.
type Session struct {
	ID          string
	Login       string
	DisplayName string
	Target      string
	Quality     string
	OutputPath  string
	StartedAt   time.Time

	cmd     *exec.Cmd
	stderr  *tailBuffer
	done    chan struct{}
	waitErr error
}

// Launch spawns the capture tool in its own process group and begins
// watching for exit. The returned session owns the process until reaped.
func Launch(bin string, spec LaunchSpec) (*Session, error) {
	if spec.Target == "" {
		return nil, errors.New("capture target required")
	}
	if spec.OutputPath == "" {
		return nil, errors.New("capture output path required")
	}

	tail := &tailBuffer{limit: stderrTailLimit}
	cmd := exec.Command(bin, Args(spec.Target, spec.Quality, spec.OutputPath)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture process: %w", err)
	}

	display := spec.DisplayName
	if display == "" {
		display = spec.Login
	}
	s := &Session{
		ID:          uuid.NewString(),
		Login:       spec.Login,
		DisplayName: display,
		Target:      spec.Target,
		Quality:     spec.Quality,
		OutputPath:  spec.OutputPath,
		StartedAt:   time.Now().UTC(),
		cmd:         cmd,
		stderr:      tail,
		done:        make(chan struct{}),
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()
	return s, nil
}

// PID returns the capture process identifier.
func (s *Session) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop signals the process group to terminate. Bookkeeping happens later,
// when the owner observes the exit.
func (s *Session) Stop() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-s.cmd.Process.Pid, unix.SIGTERM); err == nil {
		return nil
	}
	return s.cmd.Process.Signal(syscall.SIGTERM)
}

// Done is closed once the process has exited and its pipes are drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Exited reports whether the process has finished without blocking.
func (s *Session) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the wait result. Only meaningful after Done is closed.
func (s *Session) ExitErr() error {
	return s.waitErr
}

// StderrTail returns the retained tail of the process stderr.
func (s *Session) StderrTail() string {
	return s.stderr.String()
}

// tailBuffer keeps the most recent limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
