package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hoist/internal/config"
	"hoist/internal/daemon"
	"hoist/internal/events"
	"hoist/internal/ipc"
	"hoist/internal/logging"
	"hoist/internal/queue"
	"hoist/internal/testsupport"
	"hoist/internal/transport/transporttest"
	"hoist/internal/uploads"
)

type cliTestEnv struct {
	cfg        *config.Config
	manager    *uploads.Manager
	fake       *transporttest.Fake
	socketPath string
	configPath string
	file       string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	fake := transporttest.New()
	mgr, err := uploads.New(uploads.Options{
		Queue:     q,
		Transport: fake,
		Hub:       events.NewHub(64, logger),
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("uploads.New: %v", err)
	}
	d, err := daemon.New(cfg, mgr, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	file := filepath.Join(base, "backup.tar")
	testsupport.WriteFile(t, file, 2048)

	return &cliTestEnv{
		cfg:        cfg,
		manager:    mgr,
		fake:       fake,
		socketPath: socketPath,
		configPath: configPath,
		file:       file,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
