// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates internal upload and queue models into
// transport-friendly DTOs so clients never depend on internal types.
//
// # Key Types
//
// QueueEntry: a queued upload with the fields clients display (url, path,
// method, type) plus the raw option bag.
//
// UploadStatus / DaemonStatus: queue length, the in-flight upload, running
// transfers, storage health, and daemon runtime details.
//
// ErrorResponse: error message plus a stable kind (validation, submission,
// persistence, duplicate, internal) that maps onto HTTP status codes.
//
// # Design Notes
//
// DTOs use camelCase JSON tags to match the option keys callers already send.
// Timestamps use RFC3339 with milliseconds.
package api
