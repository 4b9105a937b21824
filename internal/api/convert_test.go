package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/uploads"
)

func TestFromEntriesDefaultsAndPositions(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []queue.Entry{
		{ID: "a", Options: request.Options{"url": "https://x.test/", "path": "/tmp/a"}, EnqueuedAt: enqueued},
		{ID: "b", Options: request.Options{"url": "https://x.test/", "path": "/tmp/b", "method": "PUT", "type": "multipart"}},
	}
	got := FromEntries(entries, "a")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Position != 1 || !got[0].InFlight || got[0].Method != "POST" || got[0].Type != "raw" {
		t.Fatalf("unexpected head: %+v", got[0])
	}
	if got[0].EnqueuedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("enqueuedAt = %q", got[0].EnqueuedAt)
	}
	if got[1].Position != 2 || got[1].InFlight || got[1].Method != "PUT" || got[1].Type != "multipart" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestStatusCodeByErrorKind(t *testing.T) {
	validation := func() error {
		_, err := request.Normalize(request.Options{"path": "/tmp/a"})
		return err
	}()
	cases := []struct {
		err  error
		kind string
		code int
	}{
		{validation, KindValidation, http.StatusBadRequest},
		{&uploads.SubmissionError{ID: "a", Err: errors.New("bad url")}, KindSubmission, http.StatusUnprocessableEntity},
		{&queue.PersistenceError{Op: "push", Err: errors.New("disk full")}, KindPersistence, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: a", uploads.ErrDuplicateID), KindDuplicate, http.StatusConflict},
		{errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.kind {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := StatusCode(tc.err); got != tc.code {
			t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
}
