package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"hoist/internal/events"
	"hoist/internal/fileinfo"
	"hoist/internal/logging"
	"hoist/internal/request"
)

const (
	defaultUserAgent   = "Hoist/0.1.0"
	defaultBuffer      = 64
	defaultBackoff     = 500 * time.Millisecond
	maxResponseBody    = 1 << 20
	maxRedirects       = 10
	defaultProgressGap = 250 * time.Millisecond
)

var errWriteStalled = errors.New("upload body write timed out")

// Options configures an HTTP transport.
type Options struct {
	Logger           *slog.Logger
	UserAgent        string
	ProgressInterval time.Duration
	RetryBackoff     time.Duration
	Buffer           int
	// RoundTripper replaces the per-upload transport built from request
	// timeouts when set.
	RoundTripper http.RoundTripper
}

// HTTP uploads files with net/http.
type HTTP struct {
	logger    *slog.Logger
	userAgent string
	interval  time.Duration
	backoff   time.Duration
	base      http.RoundTripper

	events chan events.Event

	mu     sync.Mutex
	active map[string]*operation
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// operation tracks one running upload. mu orders the events it emits.
type operation struct {
	id     string
	cancel context.CancelFunc

	mu       sync.Mutex
	finished bool
}

// NewHTTP constructs an HTTP transport.
func NewHTTP(opts Options) *HTTP {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressGap
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultBackoff
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &HTTP{
		logger:    logging.NewComponentLogger(opts.Logger, "transport"),
		userAgent: opts.UserAgent,
		interval:  opts.ProgressInterval,
		backoff:   opts.RetryBackoff,
		base:      opts.RoundTripper,
		events:    make(chan events.Event, opts.Buffer),
		active:    make(map[string]*operation),
	}
}

// Events implements Transport.
func (t *HTTP) Events() <-chan events.Event {
	return t.events
}

// Submit implements Transport. The upload runs detached from ctx; use Cancel
// to stop it.
func (t *HTTP) Submit(ctx context.Context, req request.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := ParseTarget(req.URL)
	if err != nil {
		return err
	}
	path := fileinfo.ResolvePath(req.Path)
	size, err := statUpload(path)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if _, exists := t.active[req.ID]; exists {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	opCtx, cancel := context.WithCancel(context.Background())
	op := &operation{id: req.ID, cancel: cancel}
	t.active[req.ID] = op
	t.wg.Add(1)
	t.mu.Unlock()

	t.logger.Info("upload started",
		logging.String(logging.FieldUploadID, req.ID),
		logging.String(logging.FieldEventType, "upload_started"),
		logging.String("method", req.Method),
		logging.String("host", target.Host),
		logging.String("kind", string(req.Kind)),
		logging.Int64("size_bytes", size),
	)

	go t.run(opCtx, op, req, target, path, size)
	return nil
}

// Cancel implements Transport.
func (t *HTTP) Cancel(id string) bool {
	t.mu.Lock()
	op, ok := t.active[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	op.cancel()
	return true
}

// CancelAll implements Transport.
func (t *HTTP) CancelAll() {
	t.mu.Lock()
	ops := make([]*operation, 0, len(t.active))
	for _, op := range t.active {
		ops = append(ops, op)
	}
	t.mu.Unlock()
	for _, op := range ops {
		op.cancel()
	}
}

// Active reports the ids of running uploads.
func (t *HTTP) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close cancels running uploads, waits for their terminal events to be
// queued, and closes the events channel. The channel must keep being drained
// until it closes.
func (t *HTTP) Close() error {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		t.CancelAll()
		t.wg.Wait()
		close(t.events)
	})
	return nil
}

func (t *HTTP) run(ctx context.Context, op *operation, req request.Request, target *url.URL, path string, size int64) {
	defer t.wg.Done()
	defer t.forget(op.id)
	defer op.cancel()

	logger := t.logger.With(logging.String(logging.FieldUploadID, req.ID))
	client := t.clientFor(req)
	if closer, ok := client.Transport.(interface{ CloseIdleConnections() }); ok && client.Transport != t.base {
		defer closer.CloseIdleConnections()
	}

	attempts := 1
	if req.RetryOnConnectionFailure {
		attempts += req.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, body, err := t.attempt(ctx, client, op, req, target, path, size)
		if ctx.Err() != nil {
			logger.Info("upload cancelled", logging.String(logging.FieldEventType, "upload_cancelled"))
			t.finish(op, events.Cancelled(req.ID))
			return
		}
		if err == nil {
			if status >= 200 && status < 300 {
				logger.Info("upload completed",
					logging.String(logging.FieldEventType, "upload_completed"),
					logging.Int("status", status),
				)
				t.finish(op, events.Completed(req.ID, status, body))
				return
			}
			logging.WarnWithContext(logger, "upload rejected by server", "upload_http_error",
				logging.Int("status", status),
				logging.String(logging.FieldErrorHint, "check the upload url and server logs"),
				logging.String(logging.FieldImpact, "upload failed"),
			)
			evt := events.Failed(req.ID, fmt.Errorf("server responded with status %d", status))
			evt.StatusCode = status
			evt.Body = body
			t.finish(op, evt)
			return
		}

		lastErr = err
		if attempt == attempts {
			break
		}
		logging.WarnWithContext(logger, "upload attempt failed; retrying", "upload_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity"),
			logging.String(logging.FieldImpact, "upload restarts from the beginning"),
		)
		select {
		case <-ctx.Done():
			t.finish(op, events.Cancelled(req.ID))
			return
		case <-time.After(t.backoff * time.Duration(attempt)):
		}
	}

	logging.ErrorWithContext(logger, "upload failed", "upload_failed",
		logging.Error(lastErr),
		logging.Int("attempts", attempts),
		logging.String(logging.FieldErrorHint, "check network connectivity and the upload url"),
	)
	t.finish(op, events.Failed(req.ID, lastErr))
}

// attempt performs one HTTP exchange and returns the status code and a
// bounded copy of the response body.
func (t *HTTP) attempt(ctx context.Context, client *http.Client, op *operation, req request.Request, target *url.URL, path string, size int64) (int, string, error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var stall *time.Timer
	touch := func() {}
	if req.WriteTimeout > 0 {
		stall = time.AfterFunc(req.WriteTimeout, func() { cancel(errWriteStalled) })
		touch = func() { stall.Reset(req.WriteTimeout) }
		defer stall.Stop()
	}
	emit := func(percent int) { t.progress(op, percent) }

	httpReq, err := t.buildRequest(attemptCtx, req, target, path, size, emit, touch)
	if err != nil {
		return 0, "", err
	}

	resp, err := client.Do(httpReq)
	if stall != nil {
		stall.Stop()
	}
	if err != nil {
		if cause := context.Cause(attemptCtx); cause != nil && errors.Is(cause, errWriteStalled) {
			return 0, "", cause
		}
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, string(body), nil
}

func (t *HTTP) buildRequest(ctx context.Context, req request.Request, target *url.URL, path string, size int64, emit func(int), touch func()) (*http.Request, error) {
	var (
		body          io.Reader
		contentType   string
		contentLength int64 = -1
		getBody       func() (io.ReadCloser, error)
	)

	switch req.Kind {
	case request.KindMultipart:
		body, contentType = t.multipartBody(req, path, size, emit, touch)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
		}
		body = readCloser{
			Reader: newProgressReader(file, size, t.interval, emit, touch),
			Closer: file,
		}
		contentType = fileinfo.DetectMimeType(path)
		contentLength = size
		getBody = func() (io.ReadCloser, error) {
			return os.Open(path)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.ContentLength = contentLength
	httpReq.GetBody = getBody
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Content-Type", contentType)
	for key, value := range req.Headers {
		if req.Kind == request.KindMultipart && strings.EqualFold(key, "Content-Type") {
			continue
		}
		httpReq.Header.Set(key, value)
	}
	return httpReq, nil
}

// multipartBody streams parameters and the file part through a pipe.
func (t *HTTP) multipartBody(req request.Request, path string, size int64, emit func(int), touch func()) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(writer, req, path, func(file io.Reader) io.Reader {
			return newProgressReader(file, size, t.interval, emit, touch)
		})
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType()
}

func writeMultipart(writer *multipart.Writer, req request.Request, path string, wrap func(io.Reader) io.Reader) error {
	keys := make([]string, 0, len(req.Parameters))
	for key := range req.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, req.Parameters[key]); err != nil {
			return fmt.Errorf("write field %s: %w", key, err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	defer file.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, req.Field, filepath.Base(path)))
	header.Set("Content-Type", fileinfo.DetectMimeType(path))
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, wrap(file)); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	return nil
}

func (t *HTTP) clientFor(req request.Request) *http.Client {
	rt := t.base
	if rt == nil {
		dialer := &net.Dialer{Timeout: req.ConnectTimeout, KeepAlive: 30 * time.Second}
		rt = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   req.ConnectTimeout,
			ResponseHeaderTimeout: req.ReadTimeout,
			ForceAttemptHTTP2:     true,
		}
	}
	return &http.Client{Transport: rt, CheckRedirect: redirectPolicy(req)}
}

func redirectPolicy(req request.Request) func(*http.Request, []*http.Request) error {
	return func(next *http.Request, via []*http.Request) error {
		if !req.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		prev := via[len(via)-1]
		if prev.URL.Scheme != next.URL.Scheme && !req.FollowSSLRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

func (t *HTTP) progress(op *operation, percent int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.finished {
		return
	}
	t.events <- events.Progress(op.id, percent)
}

func (t *HTTP) finish(op *operation, evt events.Event) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.finished {
		return
	}
	op.finished = true
	t.events <- evt
}

func (t *HTTP) forget(id string) {
	t.mu.Lock()
	delete(t.active, id)
	t.mu.Unlock()
}

// ParseTarget parses raw as an absolute http or https URL.
func ParseTarget(raw string) (*url.URL, error) {
	target, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https: %q", ErrInvalidURL, raw)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("%w: missing host: %q", ErrInvalidURL, raw)
	}
	return target, nil
}

func statUpload(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrFileUnavailable, path)
	}
	return info.Size(), nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
