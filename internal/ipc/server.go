package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"sync"

	"log/slog"

	"streamvault/internal/logging"
	"streamvault/internal/recorder"
)

// Server exposes session-manager control via JSON-RPC over a Unix socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, manager *recorder.Manager, logger *slog.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("ipc server requires a session manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{manager: manager, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("StreamVault", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the host if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	manager *recorder.Manager
	logger  *slog.Logger
	ctx     context.Context
}

// StartRecording begins capturing a channel.
func (s *service) StartRecording(req StartRequest, resp *StartResponse) error {
	if req.Target == "" {
		return errors.New("target required")
	}
	started := s.manager.StartRecording(s.ctx, req.Target, req.ChannelName, req.Quality)
	resp.Started = started
	if started {
		resp.Message = "recording started"
	} else {
		resp.Message = "recording not started; channel may already be live or the cap reached"
	}
	return nil
}

// StopRecording signals one channel, or all when Login is empty.
func (s *service) StopRecording(req StopRequest, resp *StopResponse) error {
	resp.Stopped = s.manager.StopRecording(req.Login)
	return nil
}

// ToggleRecording flips a channel's recording state.
func (s *service) ToggleRecording(req ToggleRequest, resp *ToggleResponse) error {
	if req.Target == "" {
		return errors.New("target required")
	}
	resp.Started = s.manager.ToggleRecording(s.ctx, req.Target, req.ChannelName, req.Quality)
	return nil
}

// Status reports the live session set.
func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	sessions := s.manager.ActiveSessions()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Login < sessions[j].Login })

	resp.PID = os.Getpid()
	resp.ActiveCount = len(sessions)
	resp.Sessions = make([]SessionStatus, 0, len(sessions))
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, SessionStatus{
			Login:      session.Login,
			Quality:    session.Quality,
			PID:        session.PID,
			OutputPath: session.OutputPath,
			StartedAt:  session.StartedAt,
		})
	}
	return nil
}

// DeleteRecording removes a finished recording. A live output is reported as
// a refusal in the response rather than an RPC error.
func (s *service) DeleteRecording(req DeleteRequest, resp *DeleteResponse) error {
	if req.Path == "" {
		return errors.New("path required")
	}
	err := s.manager.DeleteRecording(req.Path)
	switch {
	case err == nil:
		resp.Deleted = true
		resp.Message = "recording deleted"
	case errors.Is(err, recorder.ErrRecordingInProgress):
		resp.Deleted = false
		resp.Message = err.Error()
	default:
		return err
	}
	return nil
}
