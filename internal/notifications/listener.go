package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hoist/internal/config"
	"hoist/internal/events"
	"hoist/internal/fileinfo"
	"hoist/internal/logging"
	"hoist/internal/request"
)

// ListenerOptions wires a Listener.
type ListenerOptions struct {
	Service Service
	Config  *config.Config
	// Lookup returns the request behind a running upload id.
	Lookup func(id string) (request.Request, bool)
	// Queued reports whether id is still in the persisted queue.
	Queued func(id string) bool
	// QueueLen reports the number of queued uploads.
	QueueLen func() int
	Logger   *slog.Logger
}

// Listener renders hub events into notifications and sends them without
// blocking the caller.
type Listener struct {
	service  Service
	toggles  config.Notifications
	timeout  time.Duration
	lookup   func(string) (request.Request, bool)
	queued   func(string) bool
	queueLen func() int
	logger   *slog.Logger

	mu      sync.Mutex
	caser   cases.Caser
	started map[string]bool
	wg      sync.WaitGroup
}

// NewListener constructs a Listener.
func NewListener(opts ListenerOptions) *Listener {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	l := &Listener{
		service:  opts.Service,
		toggles:  cfg.Notifications,
		timeout:  sendTimeout(cfg),
		lookup:   opts.Lookup,
		queued:   opts.Queued,
		queueLen: opts.QueueLen,
		logger:   logging.NewComponentLogger(opts.Logger, "notifications"),
		caser:    cases.Title(language.English),
		started:  make(map[string]bool),
	}
	if l.service == nil {
		l.service = noopService{}
	}
	if l.lookup == nil {
		l.lookup = func(string) (request.Request, bool) { return request.Request{}, false }
	}
	if l.queued == nil {
		l.queued = func(string) bool { return false }
	}
	if l.queueLen == nil {
		l.queueLen = func() int { return 0 }
	}
	return l
}

// Handle is an events.Handler.
func (l *Listener) Handle(evt events.Event) {
	for _, msg := range l.render(evt) {
		l.dispatch(evt.ID, msg)
	}
}

// Wait blocks until every dispatched notification finished.
func (l *Listener) Wait() {
	l.wg.Wait()
}

func (l *Listener) render(evt events.Event) []Message {
	spec := request.NotificationSpec{Enabled: true}
	name := evt.ID
	if req, ok := l.lookup(evt.ID); ok {
		spec = req.Notification
		name = filepath.Base(fileinfo.ResolvePath(req.Path))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Message
	if spec.Enabled {
		if msg, ok := l.renderUploadLocked(evt, spec, name); ok {
			out = append(out, msg)
		}
	}
	if evt.Type.Terminal() {
		delete(l.started, evt.ID)
		if l.toggles.QueueDrained && l.queued(evt.ID) && l.queueLen() == 1 {
			out = append(out, Message{
				Title: l.titleLocked("queue drained"),
				Body:  "All queued uploads have finished",
				Tags:  []string{"hoist", "queue", "drained"},
			})
		}
	}
	return out
}

func (l *Listener) renderUploadLocked(evt events.Event, spec request.NotificationSpec, name string) (Message, bool) {
	var msg Message
	switch evt.Type {
	case events.TypeProgress:
		if !l.toggles.Started || l.started[evt.ID] {
			return msg, false
		}
		l.started[evt.ID] = true
		msg = Message{
			Title: pick(spec.OnProgressTitle, l.titleLocked("upload started")),
			Body:  pick(spec.OnProgressMessage, fmt.Sprintf("Uploading %s", name)),
			Tags:  []string{"hoist", "upload", "started"},
		}
	case events.TypeCompleted:
		if !l.toggles.Completed {
			return msg, false
		}
		msg = Message{
			Title: pick(spec.OnCompleteTitle, l.titleLocked("upload complete")),
			Body:  pick(spec.OnCompleteMessage, fmt.Sprintf("Uploaded %s (HTTP %d)", name, evt.StatusCode)),
			Tags:  []string{"hoist", "upload", "completed"},
		}
	case events.TypeError:
		if !l.toggles.Errors {
			return msg, false
		}
		reason := strings.TrimSpace(evt.Error)
		if reason == "" {
			reason = "unknown error"
		}
		msg = Message{
			Title:    pick(spec.OnErrorTitle, l.titleLocked("upload failed")),
			Body:     pick(spec.OnErrorMessage, fmt.Sprintf("Upload of %s failed: %s", name, reason)),
			Tags:     []string{"hoist", "upload", "error"},
			Priority: "high",
		}
	case events.TypeCancelled:
		if !l.toggles.Cancelled {
			return msg, false
		}
		msg = Message{
			Title: pick(spec.OnCancelledTitle, l.titleLocked("upload cancelled")),
			Body:  pick(spec.OnCancelledMessage, fmt.Sprintf("Upload of %s was cancelled", name)),
			Tags:  []string{"hoist", "upload", "cancelled"},
		}
	default:
		return msg, false
	}
	if spec.EnableRingTone && msg.Priority == "" {
		msg.Priority = "high"
	}
	if channel := strings.TrimSpace(spec.Channel); channel != "" {
		msg.Tags = append(msg.Tags, channel)
	}
	return msg, true
}

func (l *Listener) dispatch(id string, msg Message) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.service.Send(ctx, msg); err != nil {
			logging.WarnWithContext(l.logger, "notification failed", "notification_failed",
				logging.String(logging.FieldUploadID, id),
				logging.String("title", msg.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "notification was not delivered"),
			)
		}
	}()
}

func (l *Listener) titleLocked(label string) string {
	return "Hoist - " + l.caser.String(label)
}

func pick(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
