package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hoist/internal/config"
)

const userAgent = "Hoist/0.1.0"

// Message is one rendered notification.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// Service sends notifications.
type Service interface {
	Send(ctx context.Context, msg Message) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: sendTimeout(cfg)},
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.Send(ctx, Message{
		Title:    "Hoist - Test",
		Body:     "Notification system test",
		Tags:     []string{"hoist", "test"},
		Priority: "low",
	})
}

func (n *ntfyService) Send(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Send(context.Context, Message) error    { return nil }
func (noopService) TestNotification(context.Context) error { return nil }

// sendTimeout bounds a single delivery started by the listener.
func sendTimeout(cfg *config.Config) time.Duration {
	if timeout := cfg.NotificationTimeout(); timeout > 0 {
		return timeout
	}
	return 10 * time.Second
}
