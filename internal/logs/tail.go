package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// TailOptions selects what Tail returns.
type TailOptions struct {
	// Offset < 0 returns the last Limit lines; otherwise reading resumes at
	// the byte offset.
	Offset int64
	Limit  int
	// Wait bounds how long Tail polls for new lines when none are available.
	Wait time.Duration
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = readLast(path, opts.Limit)
	} else {
		result.Lines, result.Offset, err = readFrom(path, opts.Offset)
	}
	if err != nil || len(result.Lines) > 0 || opts.Wait <= 0 {
		return result, err
	}
	return poll(ctx, path, result.Offset, opts.Wait)
}

func poll(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		lines, next, err := readFrom(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(lines) > 0 || time.Now().After(deadline) {
			return TailResult{Lines: lines, Offset: next}, nil
		}
		offset = next
	}
}

// readLast returns the last limit lines using a fixed ring so memory stays
// bounded for large files.
func readLast(path string, limit int) ([]string, int64, error) {
	file, size, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()
	if limit <= 0 {
		return nil, size, nil
	}

	ring := make([]string, limit)
	count := 0
	err = scanLines(file, func(line string) {
		ring[count%limit] = line
		count++
	})
	if err != nil {
		return nil, 0, err
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	if count <= limit {
		return append([]string(nil), ring[:count]...), offset, nil
	}
	lines := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		lines = append(lines, ring[(count+i)%limit])
	}
	return lines, offset, nil
}

func readFrom(path string, offset int64) ([]string, int64, error) {
	file, size, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()
	if offset > size {
		// rotated since the last read
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	if err := scanLines(file, func(line string) { lines = append(lines, line) }); err != nil {
		return nil, 0, err
	}
	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

func open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	return file, info.Size(), nil
}

func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return nil
}
