package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hoist/internal/config"
	"hoist/internal/daemon"
	"hoist/internal/events"
	"hoist/internal/ipc"
	"hoist/internal/logging"
	"hoist/internal/notifications"
	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/transport"
	"hoist/internal/uploads"
)

// eventBufferSize bounds the number of events kept for late subscribers.
const eventBufferSize = 1024

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the hoist daemon and blocks until SIGINT, SIGTERM, or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	backend, err := queue.OpenBackend(signalCtx, cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open queue backend", "queue_backend_open_failed", logging.Error(err))
		return err
	}
	q, err := queue.Open(signalCtx, backend)
	if err != nil {
		_ = backend.Close()
		logging.ErrorWithContext(logger, "load persisted queue", "queue_load_failed", logging.Error(err))
		return err
	}
	defer q.Close()

	httpTransport := transport.NewHTTP(transport.Options{
		Logger:           logger,
		UserAgent:        cfg.Transport.UserAgent,
		ProgressInterval: cfg.ProgressInterval(),
	})
	hub := events.NewHub(eventBufferSize, logger)
	defaults := transportDefaults(cfg)
	manager, err := uploads.New(uploads.Options{
		Queue:     q,
		Transport: httpTransport,
		Hub:       hub,
		Logger:    logger,
		Defaults:  &defaults,
	})
	if err != nil {
		return fmt.Errorf("create upload manager: %w", err)
	}

	notifier := notifications.NewService(cfg)
	listener := notifications.NewListener(notifications.ListenerOptions{
		Service:  notifier,
		Config:   cfg,
		Lookup:   manager.Lookup,
		Queued:   manager.IsQueued,
		QueueLen: manager.QueueLen,
		Logger:   logger,
	})
	unsubscribe := manager.Subscribe("", listener.Handle)
	defer listener.Wait()
	defer unsubscribe()

	d, err := daemon.New(cfg, manager, notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and state directory permissions"),
		)
		_ = manager.Shutdown(context.Background())
		return err
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("hoist daemon shutting down")
	return nil
}

func transportDefaults(cfg *config.Config) request.Defaults {
	defaults := request.DefaultTuning()
	defaults.MaxRetries = cfg.Transport.MaxRetries
	defaults.ConnectTimeout = seconds(cfg.Transport.ConnectTimeout, defaults.ConnectTimeout)
	defaults.ReadTimeout = seconds(cfg.Transport.ReadTimeout, defaults.ReadTimeout)
	defaults.WriteTimeout = seconds(cfg.Transport.WriteTimeout, defaults.WriteTimeout)
	return defaults
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("state_dir", cfg.Paths.StateDir),
		logging.String("queue_backend", cfg.Queue.Backend),
		logging.Bool("resume_on_start", cfg.Queue.ResumeOnStart),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_auth", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("max_retries", cfg.Transport.MaxRetries),
	)
}

func seconds(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
