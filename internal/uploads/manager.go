package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"hoist/internal/events"
	"hoist/internal/fileinfo"
	"hoist/internal/logging"
	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/transport"
)

// Options wires a Manager. Queue, Transport and Hub are required.
type Options struct {
	Queue     *queue.Queue
	Transport transport.Transport
	Hub       *events.Hub
	Logger    *slog.Logger
	Defaults  *request.Defaults
}

// Manager is the public upload API: direct uploads, the persisted queue,
// cancellation and event subscription.
type Manager struct {
	queue       *queue.Queue
	transport   transport.Transport
	hub         *events.Hub
	coordinator *Coordinator
	router      *Router
	submitter   submitter
	defaults    request.Defaults
	logger      *slog.Logger

	reqMu    sync.Mutex
	requests map[string]request.Request

	runMu   sync.Mutex
	running bool
	done    chan struct{}
}

// Status summarizes the manager for status commands and the HTTP API.
type Status struct {
	QueueLength int          `json:"queueLength"`
	InFlight    string       `json:"inFlight,omitempty"`
	Paused      bool         `json:"paused"`
	Active      []string     `json:"active,omitempty"`
	Storage     queue.Health `json:"storage"`
}

// New constructs a Manager. Call Run to start routing transport events.
func New(opts Options) (*Manager, error) {
	if opts.Queue == nil {
		return nil, errors.New("uploads: queue is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("uploads: transport is required")
	}
	if opts.Hub == nil {
		return nil, errors.New("uploads: events hub is required")
	}
	defaults := request.DefaultTuning()
	if opts.Defaults != nil {
		defaults = *opts.Defaults
	}

	m := &Manager{
		queue:     opts.Queue,
		transport: opts.Transport,
		hub:       opts.Hub,
		submitter: submitter{transport: opts.Transport},
		defaults:  defaults,
		logger:    logging.NewComponentLogger(opts.Logger, "uploads"),
		requests:  make(map[string]request.Request),
		done:      make(chan struct{}),
	}
	coordinator, err := NewCoordinator(CoordinatorOptions{
		Queue:     opts.Queue,
		Submit:    m.submit,
		Normalize: m.normalize,
		Publish:   m.publishNotice,
		Active:    m.isActive,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	m.coordinator = coordinator
	m.router = NewRouter(opts.Transport.Events(), opts.Hub, coordinator, opts.Logger)
	m.router.forget = m.forget
	return m, nil
}

// Run routes transport events until the transport closes its channel or ctx
// ends. It may be called once. Shutdown closes the transport, which relies on
// the router draining events until then, so ctx should outlive Shutdown.
func (m *Manager) Run(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return errors.New("uploads: manager already running")
	}
	m.running = true
	m.runMu.Unlock()
	defer close(m.done)

	if !m.coordinator.IsEmpty() && m.coordinator.Paused() {
		m.logger.Info("persisted uploads waiting for resume",
			logging.Int("queued", m.queue.Len()),
			logging.String(logging.FieldEventType, "queue_paused"),
		)
	}
	return m.router.Run(ctx)
}

// Shutdown freezes the queue, stops every running upload and waits for the
// router to drain. Uploads interrupted here stay queued.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.coordinator.Halt()
	m.transport.CancelAll()
	if closer, ok := m.transport.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close transport: %w", err)
		}
	}

	m.runMu.Lock()
	running := m.running
	m.runMu.Unlock()
	if !running {
		return nil
	}
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FileInfo describes a local file.
func (m *Manager) FileInfo(path string) fileinfo.Info {
	return fileinfo.Lookup(path)
}

// StartUpload validates opts and hands the upload straight to the transport.
// Validation failures return a *request.ValidationError; failures to start
// return a *SubmissionError. An id that is queued or still uploading fails
// with ErrDuplicateID.
func (m *Manager) StartUpload(ctx context.Context, opts request.Options) (string, error) {
	req, err := m.normalize(opts)
	if err != nil {
		return "", err
	}
	err = m.coordinator.StartDirect(req.ID, func() error {
		return m.submit(ctx, req)
	})
	if err != nil {
		return "", err
	}
	logging.WithContext(logging.WithUploadID(ctx, req.ID), m.logger).Info("direct upload submitted",
		logging.String(logging.FieldEventType, "upload_submitted"),
	)
	return req.ID, nil
}

// CancelUpload cancels id. A queued upload that has not started is removed
// and reported as cancelled without reaching the transport; anything else is
// forwarded to the transport.
func (m *Manager) CancelUpload(ctx context.Context, id string) (bool, error) {
	removed, err := m.coordinator.CancelQueued(ctx, id)
	if err != nil || removed {
		return removed, err
	}
	return m.transport.Cancel(id), nil
}

// CancelAllUploads stops every running upload. Queued entries stay queued.
func (m *Manager) CancelAllUploads() bool {
	m.transport.CancelAll()
	return true
}

// AddToUploadQueue validates opts and appends them to the persisted queue.
func (m *Manager) AddToUploadQueue(ctx context.Context, opts request.Options) (string, error) {
	return m.coordinator.Enqueue(ctx, opts)
}

// ClearUploadQueue removes every queued entry. The running upload continues.
func (m *Manager) ClearUploadQueue(ctx context.Context) (bool, error) {
	if _, err := m.coordinator.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ResumeQueue starts the head of a queue restored from storage.
func (m *Manager) ResumeQueue(ctx context.Context) bool {
	return m.coordinator.Resume(ctx)
}

// Subscribe registers handler for eventType; an empty type subscribes to all.
func (m *Manager) Subscribe(eventType events.Type, handler events.Handler) func() {
	if eventType == "" {
		return m.hub.SubscribeAll(handler)
	}
	return m.hub.Subscribe(eventType, handler)
}

// Hub exposes the events hub for streaming consumers.
func (m *Manager) Hub() *events.Hub {
	return m.hub
}

// QueueEntries returns the queued uploads, head first.
func (m *Manager) QueueEntries() []queue.Entry {
	return m.coordinator.List()
}

// Status reports queue and transport state.
func (m *Manager) Status(ctx context.Context) Status {
	status := Status{
		QueueLength: m.queue.Len(),
		InFlight:    m.coordinator.InFlight(),
		Paused:      m.coordinator.Paused(),
	}
	if lister, ok := m.transport.(interface{ Active() []string }); ok {
		status.Active = lister.Active()
	}
	if checker, ok := m.queue.Backend().(queue.HealthChecker); ok {
		health, err := checker.CheckHealth(ctx)
		if err != nil {
			health.Detail = err.Error()
		}
		status.Storage = health
	}
	return status
}

// Lookup returns the request behind a running upload, or behind a queued
// upload while the event reporting its removal is published. Entries are
// dropped once the upload's terminal event has been routed.
func (m *Manager) Lookup(id string) (request.Request, bool) {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	req, ok := m.requests[id]
	return req, ok
}

// IsQueued reports whether id is in the persisted queue.
func (m *Manager) IsQueued(id string) bool {
	return m.coordinator.Contains(id)
}

// QueueLen reports the number of queued uploads.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

// submit records req for Lookup and hands it to the transport. The record is
// made first so a terminal event routed before Submit returns still finds it.
// An id that already has a record is refused.
func (m *Manager) submit(ctx context.Context, req request.Request) error {
	m.reqMu.Lock()
	if _, exists := m.requests[req.ID]; exists {
		m.reqMu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	m.requests[req.ID] = req
	m.reqMu.Unlock()
	if err := m.submitter.submit(ctx, req); err != nil {
		m.forget(req.ID)
		return err
	}
	return nil
}

func (m *Manager) isActive(id string) bool {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	_, ok := m.requests[id]
	return ok
}

// publishNotice publishes a coordinator event with the entry's request
// visible to Lookup, so listeners apply its notification settings.
func (m *Manager) publishNotice(n Notice) {
	id := n.Event.ID
	if req, err := m.normalize(n.Options); err == nil {
		req.ID = id
		m.reqMu.Lock()
		_, tracked := m.requests[id]
		if !tracked {
			m.requests[id] = req
		}
		m.reqMu.Unlock()
		if !tracked {
			defer m.forget(id)
		}
	}
	m.hub.Publish(n.Event)
}

func (m *Manager) forget(id string) {
	m.reqMu.Lock()
	delete(m.requests, id)
	m.reqMu.Unlock()
}

func (m *Manager) normalize(opts request.Options) (request.Request, error) {
	return request.NormalizeWith(opts, m.defaults)
}
