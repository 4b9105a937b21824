package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hoist/internal/api"
	"hoist/internal/testsupport"
)

const testURL = "https://uploads.example.test/put"

func TestQueueAddListCancelClear(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, id := range []string{"alpha", "beta", "gamma"} {
		out, _, err := runCLI(t, []string{"queue", "add", env.file, "--url", testURL, "--id", id, "-X", "put"}, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("queue add %s: %v", id, err)
		}
		requireContains(t, out, "Queued upload "+id)
	}

	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "alpha")
	requireContains(t, out, "uploading")
	requireContains(t, out, "waiting")
	requireContains(t, out, "2.0 KiB")
	requireContains(t, out, "PUT "+testURL)

	out, _, err = runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var list api.QueueListResponse
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode queue json: %v", err)
	}
	if len(list.Entries) != 3 || list.Entries[0].ID != "alpha" || list.Entries[2].ID != "gamma" {
		t.Fatalf("unexpected queue order: %+v", list.Entries)
	}

	out, _, err = runCLI(t, []string{"cancel", "beta"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cancel beta: %v", err)
	}
	requireContains(t, out, "Cancelled upload beta")
	if env.manager.IsQueued("beta") {
		t.Fatal("beta should have been removed from the queue")
	}

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Queue cleared")
	if env.manager.QueueLen() != 0 {
		t.Fatalf("expected empty queue, got %d", env.manager.QueueLen())
	}
}

func TestUploadDirectAndCancelAll(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"upload", env.file, "--url", testURL, "--id", "direct", "-H", "X-Token=abc"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Started upload direct")
	submitted := env.fake.Submitted()
	if len(submitted) != 1 || submitted[0].Headers["X-Token"] != "abc" {
		t.Fatalf("unexpected submission: %+v", submitted)
	}
	if env.manager.QueueLen() != 0 {
		t.Fatal("direct upload should not be queued")
	}

	out, _, err = runCLI(t, []string{"cancel", "--all"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cancel --all: %v", err)
	}
	requireContains(t, out, "Cancelled all running uploads")
	if active := env.fake.Active(); len(active) != 0 {
		t.Fatalf("expected nothing active, got %v", active)
	}
}

func TestUploadRejectsInvalidOptions(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"upload", env.file, "--url", testURL, "--type", "chunked"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"upload", env.file}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected missing --url to fail")
	}
	if _, _, err := runCLI(t, []string{"cancel"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected cancel without target to fail")
	}
}

func TestStatusAndEvents(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "add", env.file, "--url", testURL, "--id", "one"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running")
	requireContains(t, out, "1 queued")
	requireContains(t, out, "memory")

	env.fake.Complete("one", 201, "created")
	waitFor(t, 5*time.Second, func() bool { return env.manager.QueueLen() == 0 })

	out, _, err = runCLI(t, []string{"events", "--type", "completed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "one HTTP 201")
}

func TestInfoCommandRunsLocally(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	testsupport.WriteContent(t, path, []byte("hello hoist\n"))

	out, _, err := runCLI(t, []string{"info", path}, filepath.Join(dir, "missing.sock"), "")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	requireContains(t, out, "Exists:    yes")
	requireContains(t, out, "Extension: txt")
	requireContains(t, out, "text/plain")

	out, _, err = runCLI(t, []string{"info", filepath.Join(dir, "absent.bin")}, filepath.Join(dir, "missing.sock"), "")
	if err != nil {
		t.Fatalf("info missing: %v", err)
	}
	requireContains(t, out, "Exists:    no")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "hoist", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(dir, "missing.sock"), "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(dir, "missing.sock"), ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, filepath.Join(dir, "missing.sock"), target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# source: "+target)
	requireContains(t, out, "[queue]")
}

func TestDialErrorWhenDaemonMissing(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runCLI(t, []string{"status"}, filepath.Join(dir, "missing.sock"), filepath.Join(dir, "none.toml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected socket not found error, got %v", err)
	}
}

func TestLogsCommandPrintsTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(cfg.DaemonLogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, filepath.Join(base, "missing.sock"), configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "one") {
		t.Fatalf("expected only the last two lines, got:\n%s", out)
	}
	requireContains(t, out, "two\nthree\n")
}

func TestStopWhenDaemonMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"stop"}, filepath.Join(base, "missing.sock"), configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
