package api

import (
	"errors"
	"net/http"

	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/uploads"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindValidation  = "validation"
	KindSubmission  = "submission"
	KindPersistence = "persistence"
	KindDuplicate   = "duplicate"
	KindInternal    = "internal"
)

// FromEntry converts a queue entry to its API representation.
func FromEntry(position int, entry queue.Entry, inFlight string) QueueEntry {
	dto := QueueEntry{
		Position: position,
		ID:       entry.ID,
		URL:      stringOption(entry.Options, request.KeyURL),
		Path:     stringOption(entry.Options, request.KeyPath),
		Method:   stringOption(entry.Options, request.KeyMethod),
		Type:     stringOption(entry.Options, request.KeyType),
		InFlight: entry.ID != "" && entry.ID == inFlight,
		Options:  entry.Options.Clone(),
	}
	if dto.Method == "" {
		dto.Method = "POST"
	}
	if dto.Type == "" {
		dto.Type = string(request.KindRaw)
	}
	if !entry.EnqueuedAt.IsZero() {
		dto.EnqueuedAt = entry.EnqueuedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromEntries converts queue entries, numbering positions from 1.
func FromEntries(entries []queue.Entry, inFlight string) []QueueEntry {
	out := make([]QueueEntry, 0, len(entries))
	for i, entry := range entries {
		out = append(out, FromEntry(i+1, entry, inFlight))
	}
	return out
}

// FromUploadStatus converts the manager status.
func FromUploadStatus(status uploads.Status) UploadStatus {
	active := status.Active
	if active == nil {
		active = []string{}
	}
	return UploadStatus{
		QueueLength: status.QueueLength,
		InFlight:    status.InFlight,
		Paused:      status.Paused,
		Active:      active,
		Storage: StorageHealth{
			Backend:  status.Storage.Backend,
			Location: status.Storage.Location,
			Ready:    status.Storage.Ready,
			Detail:   status.Storage.Detail,
		},
	}
}

// ErrorKind classifies err using the ErrorKind method implemented by the
// upload error types.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, uploads.ErrDuplicateID) {
		return KindDuplicate
	}
	var classifier interface{ ErrorKind() string }
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return KindInternal
}

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	switch ErrorKind(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindSubmission:
		return http.StatusUnprocessableEntity
	case KindDuplicate:
		return http.StatusConflict
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the error body for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Kind: ErrorKind(err)}
}

func stringOption(opts request.Options, key string) string {
	if value, ok := opts[key].(string); ok {
		return value
	}
	return ""
}
