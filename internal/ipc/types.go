package ipc

import (
	"hoist/internal/api"
	"hoist/internal/events"
	"hoist/internal/request"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and upload status information.
type StatusResponse = api.DaemonStatus

// QueueEntry mirrors the HTTP API queue DTO for IPC callers.
type QueueEntry = api.QueueEntry

// UploadRequest carries the caller's option bag for StartUpload and AddToQueue.
type UploadRequest struct {
	Options request.Options `json:"options"`
}

// UploadResponse returns the id assigned to the upload.
type UploadResponse = api.UploadResponse

// CancelRequest cancels one upload by id.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse reports whether the cancellation took effect.
type CancelResponse = api.CancelResponse

// CancelAllRequest cancels every running upload.
type CancelAllRequest struct{}

// ClearQueueRequest removes every queued upload.
type ClearQueueRequest struct{}

// ClearQueueResponse reports the clear outcome.
type ClearQueueResponse = api.ClearResponse

// ResumeQueueRequest starts the head of a restored queue.
type ResumeQueueRequest struct{}

// ResumeQueueResponse reports whether an upload was started.
type ResumeQueueResponse = api.ResumeResponse

// QueueListRequest lists queued uploads.
type QueueListRequest struct{}

// QueueListResponse contains queue entries, head first.
type QueueListResponse = api.QueueListResponse

// FileInfoRequest describes a file on the daemon host.
type FileInfoRequest struct {
	Path string `json:"path"`
}

// FileInfoResponse wraps file metadata.
type FileInfoResponse struct {
	Info api.FileInfo `json:"info"`
}

// EventsRequest pages through buffered upload events.
type EventsRequest struct {
	Since uint64      `json:"since"`
	Limit int         `json:"limit"`
	Type  events.Type `json:"type,omitempty"`
}

// EventsResponse contains events after Since.
type EventsResponse = api.EventStreamResponse

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
