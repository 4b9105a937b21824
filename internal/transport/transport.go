package transport

import (
	"context"
	"errors"

	"hoist/internal/events"
	"hoist/internal/request"
)

var (
	// ErrInvalidURL reports a request URL that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid upload url")
	// ErrFileUnavailable reports a request path that cannot be opened for upload.
	ErrFileUnavailable = errors.New("upload file unavailable")
	// ErrDuplicateID reports a submission whose id is already running.
	ErrDuplicateID = errors.New("upload id already active")
	// ErrClosed reports a submission after the transport shut down.
	ErrClosed = errors.New("transport closed")
)

// Transport is the collaborator that performs uploads.
type Transport interface {
	// Submit starts req asynchronously. A returned error means the upload
	// never started and no events follow for it.
	Submit(ctx context.Context, req request.Request) error
	// Cancel stops the upload with id. It reports false for unknown ids.
	Cancel(id string) bool
	// CancelAll stops every running upload.
	CancelAll()
	// Events delivers progress and terminal events for accepted uploads.
	Events() <-chan events.Event
}
