package events

import (
	"fmt"
	"strings"
	"time"
)

// Type names an upload lifecycle event.
type Type string

const (
	TypeProgress  Type = "progress"
	TypeCompleted Type = "completed"
	TypeError     Type = "error"
	TypeCancelled Type = "cancelled"
)

// Types lists every event type in a stable order.
func Types() []Type {
	return []Type{TypeProgress, TypeCompleted, TypeError, TypeCancelled}
}

// Terminal reports whether no further events follow for the same upload.
func (t Type) Terminal() bool {
	switch t {
	case TypeCompleted, TypeError, TypeCancelled:
		return true
	default:
		return false
	}
}

// ParseType validates a user-supplied event type name.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", value)
}

// UnknownProgress marks a progress event whose total size is not known.
const UnknownProgress = -1

// Event is one upload lifecycle notification.
//
// Progress is an integer percent (or UnknownProgress) and only meaningful for
// progress events. StatusCode and Body accompany completed events and error
// events caused by a non-2xx response. Error carries the failure message.
type Event struct {
	Sequence   uint64    `json:"seq"`
	Type       Type      `json:"type"`
	ID         string    `json:"id"`
	Progress   int       `json:"progress"`
	StatusCode int       `json:"statusCode,omitempty"`
	Body       string    `json:"body,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"ts"`
}

// Progress builds a progress event.
func Progress(id string, percent int) Event {
	return Event{Type: TypeProgress, ID: id, Progress: percent}
}

// Completed builds a success event.
func Completed(id string, statusCode int, body string) Event {
	return Event{Type: TypeCompleted, ID: id, StatusCode: statusCode, Body: body}
}

// Failed builds an error event.
func Failed(id string, err error) Event {
	evt := Event{Type: TypeError, ID: id}
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}

// Cancelled builds a cancellation event.
func Cancelled(id string) Event {
	return Event{Type: TypeCancelled, ID: id}
}
