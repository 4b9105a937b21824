package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"hoist/internal/config"
	"hoist/internal/logging"
	"hoist/internal/notifications"
	"hoist/internal/uploads"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the upload manager lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *uploads.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	runCancel context.CancelFunc
	runDone   chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	SocketPath   string
	APIAddress   string
	Uploads      uploads.Status
}

// New constructs a daemon around an upload manager. notifier may be nil.
func New(cfg *config.Config, manager *uploads.Manager, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and upload manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		manager:  manager,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts routing upload events, and brings up
// the HTTP API when configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hoist daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	// Event routing outlives ctx: Stop ends it after the manager shut down.
	runCtx, runCancel := context.WithCancel(context.WithoutCancel(ctx))
	d.runCancel = runCancel
	d.runDone = make(chan struct{})
	go func(ctx context.Context, done chan struct{}) {
		defer close(done)
		if err := d.manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.ErrorWithContext(d.logger, "upload manager stopped", "daemon_manager_stopped", logging.Error(err))
		}
	}(runCtx, d.runDone)

	if d.cfg.Queue.ResumeOnStart && d.manager.QueueLen() > 0 {
		started := d.manager.ResumeQueue(d.ctx)
		d.logger.Info("resumed persisted upload queue",
			logging.Int("queue_length", d.manager.QueueLen()),
			logging.Bool("started", started),
		)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		d.runCancel()
		<-d.runDone
		_ = d.lock.Unlock()
		d.ctx, d.cancel, d.runCancel, d.runDone = nil, nil, nil, nil
		return err
	}

	d.writePID()
	d.running.Store(true)
	d.logger.Info("hoist daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("queue_length", d.manager.QueueLen()),
	)
	return nil
}

// Stop cancels running transfers, stops background routing, and releases the
// daemon lock. Queued uploads stay persisted for the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.manager.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "upload manager shutdown incomplete", "daemon_shutdown_incomplete",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight transfers may not have reported their final state"),
		)
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.runCancel != nil {
		d.runCancel()
		d.runCancel = nil
	}
	if d.runDone != nil {
		<-d.runDone
		d.runDone = nil
	}
	d.removePID()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("hoist daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Manager exposes the upload manager for the IPC layer.
func (d *Daemon) Manager() *uploads.Manager {
	return d.manager
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		APIAddress:   d.api.address(),
		Uploads:      d.manager.Status(ctx),
	}
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) writePID() {
	path := d.cfg.PIDPath()
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		logging.WarnWithContext(d.logger, "failed to write pid file", "daemon_pid_write_failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

func (d *Daemon) removePID() {
	if err := os.Remove(d.cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Debug("remove pid file", logging.Error(err))
	}
}
