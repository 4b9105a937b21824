package api

import (
	"hoist/internal/events"
	"hoist/internal/fileinfo"
	"hoist/internal/request"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueEntry describes a queued upload in a transport-friendly format.
type QueueEntry struct {
	Position   int             `json:"position"`
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Path       string          `json:"path"`
	Method     string          `json:"method"`
	Type       string          `json:"type"`
	InFlight   bool            `json:"inFlight"`
	EnqueuedAt string          `json:"enqueuedAt,omitempty"`
	Options    request.Options `json:"options,omitempty"`
}

// StorageHealth mirrors queue backend diagnostics.
type StorageHealth struct {
	Backend  string `json:"backend"`
	Location string `json:"location,omitempty"`
	Ready    bool   `json:"ready"`
	Detail   string `json:"detail,omitempty"`
}

// UploadStatus summarizes queue and transfer state.
type UploadStatus struct {
	QueueLength int           `json:"queueLength"`
	InFlight    string        `json:"inFlight,omitempty"`
	Paused      bool          `json:"paused"`
	Active      []string      `json:"active"`
	Storage     StorageHealth `json:"storage"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	LockFilePath string       `json:"lockFilePath"`
	SocketPath   string       `json:"socketPath,omitempty"`
	APIAddress   string       `json:"apiAddress,omitempty"`
	Uploads      UploadStatus `json:"uploads"`
}

// QueueListResponse wraps the queued uploads, head first.
type QueueListResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// UploadResponse carries the id assigned to a submitted upload.
type UploadResponse struct {
	ID string `json:"id"`
}

// CancelResponse reports whether a cancellation took effect.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ClearResponse reports the outcome of clearing the queue.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// ResumeResponse reports whether resuming the queue started an upload.
type ResumeResponse struct {
	Started bool `json:"started"`
}

// FileInfo describes a local file.
type FileInfo = fileinfo.Info

// EventStreamResponse is a page of recent upload events.
type EventStreamResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
