package uploads_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/testsupport"
	"hoist/internal/transport/transporttest"
	"hoist/internal/uploads"
)

type harness struct {
	t         *testing.T
	manager   *uploads.Manager
	fake      *transporttest.Fake
	hub       *events.Hub
	queue     *queue.Queue
	backend   queue.Backend
	file      string
	recorder  *recorder
	cancelRun context.CancelFunc
	runDone   chan error
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	backend queue.Backend
}

func withBackend(backend queue.Backend) harnessOption {
	return func(cfg *harnessConfig) { cfg.backend = backend }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backend == nil {
		cfg.backend = queue.NewMemoryBackend()
	}

	q, err := queue.Open(context.Background(), cfg.backend)
	require.NoError(t, err)

	fake := transporttest.New()
	hub := events.NewHub(128, logging.NewNop())
	manager, err := uploads.New(uploads.Options{
		Queue:     q,
		Transport: fake,
		Hub:       hub,
		Logger:    logging.NewNop(),
	})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, file, 2048)

	h := &harness{
		t:        t,
		manager:  manager,
		fake:     fake,
		hub:      hub,
		queue:    q,
		backend:  cfg.backend,
		file:     file,
		recorder: &recorder{},
		runDone:  make(chan error, 1),
	}
	hub.SubscribeAll(h.recorder.record)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelRun = cancel
	go func() { h.runDone <- manager.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancelRun()
	select {
	case <-h.runDone:
	case <-time.After(5 * time.Second):
		h.t.Error("router did not stop")
	}
	_ = h.fake.Close()
}

func (h *harness) options(id string) request.Options {
	opts := request.Options{
		"url":  "https://uploads.example.com/files",
		"path": h.file,
	}
	if id != "" {
		opts["customUploadId"] = id
	}
	return opts
}

func (h *harness) enqueue(id string) string {
	h.t.Helper()
	got, err := h.manager.AddToUploadQueue(context.Background(), h.options(id))
	require.NoError(h.t, err)
	return got
}

func (h *harness) queuedIDs() []string {
	entries := h.manager.QueueEntries()
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	return ids
}

func (h *harness) waitSubmitted(want ...string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return equalIDs(h.fake.SubmittedIDs(), want)
	}, 2*time.Second, 5*time.Millisecond, "submitted = %v, want %v", h.fake.SubmittedIDs(), want)
}

func (h *harness) waitQueued(want ...string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return equalIDs(h.queuedIDs(), want)
	}, 2*time.Second, 5*time.Millisecond, "queued = %v, want %v", h.queuedIDs(), want)
}

func (h *harness) waitEvent(eventType events.Type, id string) events.Event {
	h.t.Helper()
	var found events.Event
	require.Eventually(h.t, func() bool {
		for _, evt := range h.recorder.all() {
			if evt.Type == eventType && evt.ID == id {
				found = evt
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no %s event for %s", eventType, id)
	return found
}

// drain waits until the router has published every event the fake emitted.
func (h *harness) drain() {
	h.t.Helper()
	marker := "drain-" + request.NewID()
	h.fake.Emit(events.Progress(marker, 0))
	h.waitEvent(events.TypeProgress, marker)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) record(evt events.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
