package fileinfo

import (
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMimeType is reported when neither content nor extension identify a file.
const DefaultMimeType = "application/octet-stream"

// Info describes a file on disk.
type Info struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Size      int64  `json:"size,omitempty"`
	Extension string `json:"extension,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

// ResolvePath converts a file:// URI into a filesystem path. Other values are
// returned cleaned but otherwise unchanged.
func ResolvePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(path), "file://") {
		if parsed, err := url.Parse(path); err == nil && parsed.Path != "" {
			return filepath.Clean(parsed.Path)
		}
		return filepath.Clean(path[len("file://"):])
	}
	return filepath.Clean(path)
}

// Lookup reports name, size, extension and MIME type for path.
func Lookup(path string) Info {
	resolved := ResolvePath(path)
	info := Info{Path: resolved, Name: filepath.Base(resolved)}
	if resolved == "" {
		info.Name = ""
		return info
	}
	info.Extension = Extension(resolved)

	stat, err := os.Stat(resolved)
	if err != nil {
		return info
	}
	info.Exists = true
	if stat.IsDir() {
		info.Extension = ""
		return info
	}
	info.Size = stat.Size()
	info.MimeType = DetectMimeType(resolved)
	return info
}

// Extension returns the lower-cased extension of path without the leading dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// DetectMimeType sniffs the file content, then falls back to the extension
// table and finally to DefaultMimeType. Generic sniff results (plain text,
// octet-stream) lose to a more specific extension match.
func DetectMimeType(path string) string {
	sniffed := ""
	if detected, err := mimetype.DetectFile(path); err == nil {
		sniffed = baseType(detected.String())
	}
	if sniffed != "" && sniffed != DefaultMimeType && sniffed != "text/plain" {
		return sniffed
	}
	if byExt := ByExtension(Extension(path)); byExt != "" {
		return byExt
	}
	if sniffed != "" {
		return sniffed
	}
	return DefaultMimeType
}

// ByExtension looks up a MIME type from an extension without a leading dot.
func ByExtension(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return ""
	}
	return baseType(mime.TypeByExtension("." + ext))
}

func baseType(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
