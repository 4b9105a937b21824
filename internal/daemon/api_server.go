package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hoist/internal/api"
	"hoist/internal/config"
	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/request"
)

const (
	defaultEventLimit = 100
	sseEventName      = "upload"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon
	engine *gin.Engine

	listener net.Listener
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}
	srv.engine = srv.routes()
	return srv
}

func (s *apiServer) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	group := router.Group("/api")
	group.Use(authMiddleware(s.token))
	{
		group.GET("/status", s.handleStatus)
		group.GET("/queue", s.handleQueueList)
		group.POST("/queue", s.handleQueueAdd)
		group.DELETE("/queue", s.handleQueueClear)
		group.POST("/queue/resume", s.handleQueueResume)
		group.POST("/uploads", s.handleUploadStart)
		group.DELETE("/uploads", s.handleCancelAll)
		group.DELETE("/uploads/:id", s.handleCancel)
		group.GET("/files", s.handleFileInfo)
		group.GET("/events", s.handleEvents)
	}
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	// Streaming handlers observe the base context; cancel it so Shutdown
	// does not wait on open event streams.
	if s.cancel != nil {
		s.cancel()
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, daemonStatusDTO(s.daemon.Status(c.Request.Context())))
}

func (s *apiServer) handleQueueList(c *gin.Context) {
	mgr := s.daemon.Manager()
	status := mgr.Status(c.Request.Context())
	c.JSON(http.StatusOK, api.QueueListResponse{
		Entries: api.FromEntries(mgr.QueueEntries(), status.InFlight),
	})
}

func (s *apiServer) handleQueueAdd(c *gin.Context) {
	opts, ok := s.bindOptions(c)
	if !ok {
		return
	}
	id, err := s.daemon.Manager().AddToUploadQueue(c.Request.Context(), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.UploadResponse{ID: id})
}

func (s *apiServer) handleQueueClear(c *gin.Context) {
	cleared, err := s.daemon.Manager().ClearUploadQueue(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ClearResponse{Cleared: cleared})
}

func (s *apiServer) handleQueueResume(c *gin.Context) {
	started := s.daemon.Manager().ResumeQueue(c.Request.Context())
	c.JSON(http.StatusOK, api.ResumeResponse{Started: started})
}

func (s *apiServer) handleUploadStart(c *gin.Context) {
	opts, ok := s.bindOptions(c)
	if !ok {
		return
	}
	id, err := s.daemon.Manager().StartUpload(c.Request.Context(), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, api.UploadResponse{ID: id})
}

func (s *apiServer) handleCancel(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	cancelled, err := s.daemon.Manager().CancelUpload(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.CancelResponse{Cancelled: cancelled})
}

func (s *apiServer) handleCancelAll(c *gin.Context) {
	cancelled := s.daemon.Manager().CancelAllUploads()
	c.JSON(http.StatusOK, api.CancelResponse{Cancelled: cancelled})
}

func (s *apiServer) handleFileInfo(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "path query parameter is required", Kind: api.KindValidation})
		return
	}
	c.JSON(http.StatusOK, s.daemon.Manager().FileInfo(path))
}

// handleEvents returns buffered upload events. With follow=true the response
// becomes a server-sent event stream that stays open until the client leaves.
func (s *apiServer) handleEvents(c *gin.Context) {
	since, err := parseUintQuery(c, "since")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Kind: api.KindValidation})
		return
	}
	limit := defaultEventLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "limit must be a positive integer", Kind: api.KindValidation})
			return
		}
		limit = parsed
	}
	var filter events.Type
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		filter, err = events.ParseType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Kind: api.KindValidation})
			return
		}
	}
	hub := s.daemon.Manager().Hub()
	follow := c.Query("follow") == "1" || strings.EqualFold(c.Query("follow"), "true")

	if !follow {
		var batch []events.Event
		var next uint64
		if c.Query("since") == "" {
			batch, next = hub.Tail(limit)
		} else {
			batch, next, _ = hub.Fetch(c.Request.Context(), since, limit, false)
		}
		c.JSON(http.StatusOK, api.EventStreamResponse{Events: filterEvents(batch, filter), Next: next})
		return
	}

	ctx := c.Request.Context()
	if c.Query("since") == "" {
		_, since = hub.Tail(0)
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		batch, next, err := hub.Fetch(ctx, since, limit, true)
		if err != nil {
			return false
		}
		since = next
		for _, evt := range filterEvents(batch, filter) {
			c.SSEvent(sseEventName, evt)
		}
		return true
	})
}

func (s *apiServer) bindOptions(c *gin.Context) (request.Options, bool) {
	var opts request.Options
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON body: " + err.Error(), Kind: api.KindValidation})
		return nil, false
	}
	if opts == nil {
		opts = request.Options{}
	}
	return opts, true
}

func (s *apiServer) writeError(c *gin.Context, err error) {
	code := api.StatusCode(err)
	if code >= http.StatusInternalServerError {
		logging.WarnWithContext(s.logger, "api request failed", "api_request_failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
	}
	c.JSON(code, api.NewErrorResponse(err))
}

func daemonStatusDTO(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		SocketPath:   status.SocketPath,
		APIAddress:   status.APIAddress,
		Uploads:      api.FromUploadStatus(status.Uploads),
	}
}

func filterEvents(batch []events.Event, filter events.Type) []events.Event {
	if batch == nil {
		batch = []events.Event{}
	}
	if filter == "" {
		return batch
	}
	out := make([]events.Event, 0, len(batch))
	for _, evt := range batch {
		if evt.Type == filter {
			out = append(out, evt)
		}
	}
	return out
}

func parseUintQuery(c *gin.Context, key string) (uint64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return value, nil
}
