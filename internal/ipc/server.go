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
	"sync"
	"time"

	"github.com/google/uuid"

	"wavecatch/internal/api"
	"wavecatch/internal/daemon"
	"wavecatch/internal/logging"
	"wavecatch/internal/logs"
	"wavecatch/internal/services"
)

const maxWatchWait = 30 * time.Second

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

	mu    sync.Mutex
	conns map[net.Conn]struct{}
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
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
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
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until Close is called.
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
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open connections, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun wavecatch stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// request tags a call with a fresh request id for log correlation.
func (s *service) request() (context.Context, *slog.Logger) {
	ctx := services.WithRequestID(s.ctx, uuid.NewString())
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	ctx, logger := s.request()
	logger.Debug("submit requested", logging.String("url", req.URL))
	job, err := s.daemon.Submit(ctx, req)
	if err != nil {
		logger.Info("submit rejected",
			logging.String(logging.FieldEventType, "submit_rejected"),
			logging.String("reason", services.Message(err)))
		return wireError(err)
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	cancelled, err := s.daemon.Cancel(req.ID)
	if err != nil {
		return wireError(err)
	}
	resp.Cancelled = cancelled
	if job, err := s.daemon.Job(req.ID); err == nil {
		resp.Job = api.FromJob(job)
	}
	return nil
}

func (s *service) Analyze(req AnalyzeRequest, resp *AnalyzeResponse) error {
	ctx, logger := s.request()
	logger.Debug("analysis requested", logging.String("url", req.URL))
	states, err := s.daemon.Analyze(ctx, req.URL)
	if err != nil {
		return wireError(err)
	}
	resp.States = make([]api.JobState, 0, len(states))
	for _, st := range states {
		resp.States = append(resp.States, api.FromState(st))
	}
	if len(resp.States) > 0 {
		resp.Summary = resp.States[len(resp.States)-1]
	}
	return nil
}

func (s *service) Jobs(_ JobsRequest, resp *JobsResponse) error {
	resp.Jobs = api.FromJobs(s.daemon.Jobs())
	return nil
}

func (s *service) Job(req JobRequest, resp *JobResponse) error {
	job, err := s.daemon.Job(req.ID)
	if err != nil {
		return wireError(err)
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if len(req.IDs) == 0 {
		return wireError(services.Wrap(services.ErrValidation, "", "", "remove requires at least one job id", nil))
	}
	for _, id := range req.IDs {
		if err := s.daemon.Remove(id); err != nil {
			return wireError(err)
		}
		resp.Removed++
	}
	s.logger.Info("jobs removed",
		logging.String(logging.FieldEventType, "jobs_removed"),
		logging.Int("removed_count", resp.Removed))
	return nil
}

func (s *service) Clear(_ ClearRequest, resp *ClearResponse) error {
	resp.Removed = s.daemon.ClearFinished()
	s.logger.Info("finished jobs cleared",
		logging.String(logging.FieldEventType, "jobs_cleared"),
		logging.Int("removed_count", resp.Removed))
	return nil
}

func (s *service) Watch(req WatchRequest, resp *WatchResponse) error {
	wait := min(time.Duration(req.WaitMillis)*time.Millisecond, maxWatchWait)
	ctx := s.ctx
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait)
		defer cancel()
	}
	updates, next, err := s.daemon.Updates().Fetch(ctx, req.Since, req.Limit, wait > 0)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(err, context.Canceled) {
			return errors.New("daemon shutting down")
		}
		return err
	}
	resp.Updates = api.FromUpdates(updates)
	resp.Next = next
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).API()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Match:  req.JobID,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
