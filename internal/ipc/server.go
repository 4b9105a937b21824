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

	"hoist/internal/api"
	"hoist/internal/daemon"
	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/request"
)

// serviceName prefixes every RPC method.
const serviceName = "Hoist"

const defaultEventLimit = 100

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
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
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
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"),
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

// Close stops the server and removes the socket file.
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
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	*resp = api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		SocketPath:   status.SocketPath,
		APIAddress:   status.APIAddress,
		Uploads:      api.FromUploadStatus(status.Uploads),
	}
	return nil
}

func (s *service) StartUpload(req UploadRequest, resp *UploadResponse) error {
	id, err := s.daemon.Manager().StartUpload(s.ctx, optionsOrEmpty(req.Options))
	if err != nil {
		return rpcError(err)
	}
	resp.ID = id
	return nil
}

func (s *service) AddToQueue(req UploadRequest, resp *UploadResponse) error {
	id, err := s.daemon.Manager().AddToUploadQueue(s.ctx, optionsOrEmpty(req.Options))
	if err != nil {
		return rpcError(err)
	}
	resp.ID = id
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("upload id is required")
	}
	cancelled, err := s.daemon.Manager().CancelUpload(s.ctx, id)
	if err != nil {
		return rpcError(err)
	}
	resp.Cancelled = cancelled
	return nil
}

func (s *service) CancelAll(_ CancelAllRequest, resp *CancelResponse) error {
	resp.Cancelled = s.daemon.Manager().CancelAllUploads()
	return nil
}

func (s *service) ClearQueue(_ ClearQueueRequest, resp *ClearQueueResponse) error {
	cleared, err := s.daemon.Manager().ClearUploadQueue(s.ctx)
	if err != nil {
		return rpcError(err)
	}
	resp.Cleared = cleared
	return nil
}

func (s *service) ResumeQueue(_ ResumeQueueRequest, resp *ResumeQueueResponse) error {
	resp.Started = s.daemon.Manager().ResumeQueue(s.ctx)
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	mgr := s.daemon.Manager()
	inFlight := mgr.Status(s.ctx).InFlight
	resp.Entries = api.FromEntries(mgr.QueueEntries(), inFlight)
	return nil
}

func (s *service) FileInfo(req FileInfoRequest, resp *FileInfoResponse) error {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return errors.New("path is required")
	}
	resp.Info = s.daemon.Manager().FileInfo(path)
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	hub := s.daemon.Manager().Hub()
	batch, next, err := hub.Fetch(s.ctx, req.Since, limit, false)
	if err != nil {
		return err
	}
	out := make([]events.Event, 0, len(batch))
	for _, evt := range batch {
		if req.Type == "" || evt.Type == req.Type {
			out = append(out, evt)
		}
	}
	resp.Events = out
	resp.Next = next
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}

func optionsOrEmpty(opts request.Options) request.Options {
	if opts == nil {
		return request.Options{}
	}
	return opts
}

// rpcError prefixes the error kind so clients can classify failures after
// net/rpc flattens the error to a string.
func rpcError(err error) error {
	return fmt.Errorf("%s: %s", api.ErrorKind(err), err.Error())
}
