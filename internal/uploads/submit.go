package uploads

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"hoist/internal/fileinfo"
	"hoist/internal/request"
	"hoist/internal/transport"
)

// preflight rejects requests the transport could not start: a malformed URL
// or a path that is not a readable regular file.
func preflight(req request.Request) error {
	if _, err := transport.ParseTarget(req.URL); err != nil {
		return err
	}
	path := fileinfo.ResolvePath(req.Path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat upload file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("upload path %s is not a regular file", path)
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("upload file %s is not readable: %w", path, err)
	}
	return nil
}

// submitter is the direct submission path shared by StartUpload and the
// queue coordinator.
type submitter struct {
	transport transport.Transport
}

func (s submitter) submit(ctx context.Context, req request.Request) error {
	if err := preflight(req); err != nil {
		return &SubmissionError{ID: req.ID, Err: err}
	}
	if err := s.transport.Submit(ctx, req); err != nil {
		return &SubmissionError{ID: req.ID, Err: err}
	}
	return nil
}
