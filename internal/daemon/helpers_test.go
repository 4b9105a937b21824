package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"hoist/internal/config"
	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/queue"
	"hoist/internal/testsupport"
	"hoist/internal/transport/transporttest"
	"hoist/internal/uploads"
)

type fixture struct {
	cfg     *config.Config
	daemon  *Daemon
	manager *uploads.Manager
	fake    *transporttest.Fake
	file    string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	fake := transporttest.New()
	mgr, err := uploads.New(uploads.Options{
		Queue:     q,
		Transport: fake,
		Hub:       events.NewHub(64, logging.NewNop()),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("uploads.New: %v", err)
	}
	d, err := New(cfg, mgr, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	file := filepath.Join(testsupport.BaseDir(cfg), "clip.mp4")
	testsupport.WriteFile(t, file, 2048)
	return &fixture{cfg: cfg, daemon: d, manager: mgr, fake: fake, file: file}
}

func (f *fixture) options(id string) map[string]any {
	opts := map[string]any{
		"url":  "https://uploads.example.test/put",
		"path": f.file,
	}
	if id != "" {
		opts["customUploadId"] = id
	}
	return opts
}
