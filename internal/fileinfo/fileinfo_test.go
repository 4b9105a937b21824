package fileinfo_test

import (
	"os"
	"path/filepath"
	"testing"

	"hoist/internal/fileinfo"
)

func TestLookupMissingFile(t *testing.T) {
	info := fileinfo.Lookup(filepath.Join(t.TempDir(), "absent.mp4"))
	if info.Exists {
		t.Fatal("expected missing file to report Exists=false")
	}
	if info.Name != "absent.mp4" {
		t.Fatalf("name = %q", info.Name)
	}
	if info.Size != 0 || info.MimeType != "" {
		t.Fatalf("unexpected metadata for missing file: %+v", info)
	}
}

func TestLookupSniffsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.dat")
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		t.Fatal(err)
	}

	info := fileinfo.Lookup(path)
	if !info.Exists {
		t.Fatal("expected file to exist")
	}
	if info.Size != int64(len(png)) {
		t.Fatalf("size = %d, want %d", info.Size, len(png))
	}
	if info.Extension != "dat" {
		t.Fatalf("extension = %q", info.Extension)
	}
	if info.MimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", info.MimeType)
	}
}

func TestLookupFallsBackToExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Page.HTML")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	info := fileinfo.Lookup(path)
	if info.Extension != "html" {
		t.Fatalf("extension = %q", info.Extension)
	}
	if info.MimeType != "text/html" {
		t.Fatalf("mime = %q, want text/html", info.MimeType)
	}
}

func TestLookupUnknownBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{0x00, 0x9c, 0x13, 0x7a, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := fileinfo.Lookup(path).MimeType; got != fileinfo.DefaultMimeType {
		t.Fatalf("mime = %q, want %q", got, fileinfo.DefaultMimeType)
	}
}

func TestLookupAcceptsFileURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	info := fileinfo.Lookup("file://" + path)
	if !info.Exists || info.Path != path {
		t.Fatalf("file URI not resolved: %+v", info)
	}
	if info.MimeType != "application/json" {
		t.Fatalf("mime = %q", info.MimeType)
	}
}

func TestResolvePath(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"/tmp/a/../b.txt":          "/tmp/b.txt",
		"file:///var/data/x.mp4":   "/var/data/x.mp4",
		"FILE:///var/data/y.mp4":   "/var/data/y.mp4",
		"file:///tmp/with%20space": "/tmp/with space",
	}
	for input, want := range cases {
		if got := fileinfo.ResolvePath(input); got != want {
			t.Errorf("ResolvePath(%q) = %q, want %q", input, got, want)
		}
	}
}
