package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/notifications"
	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/testsupport"
	"hoist/internal/transport/transporttest"
	"hoist/internal/uploads"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

type ntfyRecorder struct {
	mu       sync.Mutex
	requests []captured
}

func (r *ntfyRecorder) all() []captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captured(nil), r.requests...)
}

func newNtfyServer(t *testing.T) (*httptest.Server, *ntfyRecorder) {
	t.Helper()
	rec := &ntfyRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := notifications.NewService(cfg)
	if err := svc.Send(context.Background(), notifications.Message{Title: "x", Body: "y"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNtfyServiceSendsHeaders(t *testing.T) {
	server, rec := newNtfyServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(got))
	}
	if got[0].title != "Hoist - Test" || got[0].tags != "hoist,test" || got[0].priority != "low" {
		t.Fatalf("unexpected request: %+v", got[0])
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	err := notifications.NewService(cfg).Send(context.Background(), notifications.Message{Body: "hi"})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestListenerRendersUploadEvents(t *testing.T) {
	server, rec := newNtfyServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Started = true
	cfg.Notifications.QueueDrained = false

	requests := map[string]request.Request{
		"custom": {
			ID:   "custom",
			Path: "file:///data/video.mp4",
			Notification: request.NotificationSpec{
				Enabled:           true,
				OnCompleteTitle:   "Backup done",
				OnCompleteMessage: "Your video is safe",
				EnableRingTone:    true,
				Channel:           "backups",
			},
		},
		"silent": {ID: "silent", Path: "/data/a.txt", Notification: request.NotificationSpec{Enabled: false}},
	}
	listener := notifications.NewListener(notifications.ListenerOptions{
		Service: notifications.NewService(cfg),
		Config:  cfg,
		Lookup: func(id string) (request.Request, bool) {
			req, ok := requests[id]
			return req, ok
		},
		Logger: logging.NewNop(),
	})

	listener.Handle(events.Progress("custom", 0))
	listener.Handle(events.Progress("custom", 50))
	listener.Handle(events.Completed("custom", 201, ""))
	listener.Handle(events.Completed("silent", 200, ""))
	listener.Handle(events.Failed("unknown", errors.New("connection reset")))
	listener.Wait()

	got := rec.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d: %+v", len(got), got)
	}
	byTitle := make(map[string]captured, len(got))
	for _, c := range got {
		byTitle[c.title] = c
	}

	started, ok := byTitle["Hoist - Upload Started"]
	if !ok || started.body != "Uploading video.mp4" {
		t.Fatalf("missing started notification: %+v", got)
	}
	done, ok := byTitle["Backup done"]
	if !ok || done.body != "Your video is safe" || done.priority != "high" || done.tags != "hoist,upload,completed,backups" {
		t.Fatalf("unexpected completion notification: %+v", done)
	}
	failed, ok := byTitle["Hoist - Upload Failed"]
	if !ok || failed.body != "Upload of unknown failed: connection reset" || failed.priority != "high" {
		t.Fatalf("unexpected error notification: %+v", failed)
	}
}

func TestListenerAnnouncesDrainedQueue(t *testing.T) {
	server, rec := newNtfyServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Completed = false
	cfg.Notifications.QueueDrained = true

	remaining := 2
	listener := notifications.NewListener(notifications.ListenerOptions{
		Service:  notifications.NewService(cfg),
		Config:   cfg,
		Queued:   func(string) bool { return true },
		QueueLen: func() int { return remaining },
		Logger:   logging.NewNop(),
	})

	listener.Handle(events.Completed("a", 200, ""))
	remaining = 1
	listener.Handle(events.Completed("b", 200, ""))
	listener.Wait()

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d: %+v", len(got), got)
	}
	if got[0].title != "Hoist - Queue Drained" {
		t.Fatalf("title = %q", got[0].title)
	}
}

func TestListenerHonoursSettingsOfQueuedUploads(t *testing.T) {
	server, rec := newNtfyServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Started = false
	cfg.Notifications.Completed = false
	cfg.Notifications.Errors = true
	cfg.Notifications.Cancelled = true
	cfg.Notifications.QueueDrained = false

	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	fake := transporttest.New()
	manager, err := uploads.New(uploads.Options{
		Queue:     q,
		Transport: fake,
		Hub:       events.NewHub(64, logging.NewNop()),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = manager.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = fake.Close()
		<-runDone
	})

	listener := notifications.NewListener(notifications.ListenerOptions{
		Service:  notifications.NewService(cfg),
		Config:   cfg,
		Lookup:   manager.Lookup,
		Queued:   manager.IsQueued,
		QueueLen: manager.QueueLen,
		Logger:   logging.NewNop(),
	})
	manager.Subscribe("", listener.Handle)

	file := filepath.Join(t.TempDir(), "backup.tar")
	testsupport.WriteFile(t, file, 512)
	enqueue := func(id string, notification map[string]any) {
		t.Helper()
		opts := request.Options{"url": "https://upload.test/", "path": file, "customUploadId": id}
		if notification != nil {
			opts["notification"] = notification
		}
		if _, err := manager.AddToUploadQueue(context.Background(), opts); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	enqueue("first", nil)
	enqueue("quiet", map[string]any{"enabled": false})
	if ok, err := manager.CancelUpload(context.Background(), "quiet"); err != nil || !ok {
		t.Fatalf("cancel quiet: ok=%v err=%v", ok, err)
	}

	fake.FailSubmit("loud", errors.New("connection refused"))
	enqueue("loud", map[string]any{"onErrorTitle": "Nightly backup failed"})
	fake.Complete("first", 200, "")

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	listener.Wait()

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d: %+v", len(got), got)
	}
	if got[0].title != "Nightly backup failed" || got[0].priority != "high" {
		t.Fatalf("unexpected notification: %+v", got[0])
	}
}
