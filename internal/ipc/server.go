package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"piperun/internal/api"
	"piperun/internal/daemon"
	"piperun/internal/history"
	"piperun/internal/logging"
	"piperun/internal/session"
)

const (
	serviceName = "Piperun"
	callTimeout = 10 * time.Second
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
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
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
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

// Close stops the server and removes the socket file. Open client
// connections are served until their clients hang up.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, callTimeout)
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	s.logger.Debug("session start requested", logging.String(logging.FieldPipePath, req.PipePath))
	ctx, cancel := s.callContext()
	defer cancel()

	snap, err := s.daemon.StartSession(ctx, req.PipePath)
	resp.Session = api.FromSnapshot(snap)
	if err != nil {
		resp.Started = false
		resp.Message = err.Error()
		if errors.Is(err, session.ErrAlreadyRunning) {
			resp.Message = "session already running"
		}
		return nil
	}
	resp.Started = true
	resp.Message = "listening on " + snap.PipePath
	s.logger.Info("session started via IPC",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String(logging.FieldPipePath, snap.PipePath),
	)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("session stop requested")
	ctx, cancel := s.callContext()
	defer cancel()

	requested, err := s.daemon.StopSession(ctx)
	switch {
	case errors.Is(err, session.ErrNotRunning):
		resp.Message = "no session running"
		return nil
	case err != nil:
		return err
	case !requested:
		resp.Message = "stop already pending"
		return nil
	}
	resp.Requested = true
	resp.Message = "stop requested"
	s.logger.Info("session stop requested via IPC",
		logging.String(logging.FieldEventType, "session_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	ctx, cancel := s.callContext()
	defer cancel()

	*resp = s.daemon.Status(ctx).API()
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	if req.Limit < 0 {
		return fmt.Errorf("invalid history limit %d", req.Limit)
	}
	filter := history.Filter{
		SessionID: strings.TrimSpace(req.SessionID),
		Outcome:   history.Outcome(strings.TrimSpace(req.Outcome)),
		Limit:     req.Limit,
	}
	entries, err := s.daemon.History(s.ctx, filter)
	if err != nil {
		return err
	}
	resp.Entries = api.FromHistoryEntries(entries)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, cancel := s.callContext()
	defer cancel()

	sent, message, err := s.daemon.TestNotification(ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}
