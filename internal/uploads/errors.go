package uploads

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmission matches every *SubmissionError.
	ErrSubmission = errors.New("upload submission failed")
	// ErrDuplicateID reports an upload id that is already queued or uploading.
	ErrDuplicateID = errors.New("upload id already in use")
)

// SubmissionError reports an upload that could not be started.
type SubmissionError struct {
	ID  string
	Err error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID == "" {
		return fmt.Sprintf("submit upload: %v", e.Err)
	}
	return fmt.Sprintf("submit upload %s: %v", e.ID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrSubmission) match.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// ErrorKind classifies the error for IPC and HTTP responses.
func (e *SubmissionError) ErrorKind() string {
	return "submission"
}
