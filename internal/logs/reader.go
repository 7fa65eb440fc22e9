package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Reader reads lines from one log file.
type Reader struct {
	Path string
	// Filter keeps only lines containing it; empty keeps everything.
	Filter string
	// Poll is the follow interval; zero means 250ms.
	Poll time.Duration
}

func (r Reader) keep(line string) bool {
	return r.Filter == "" || strings.Contains(line, r.Filter)
}

// Last returns up to n matching lines from the end of the file and the offset
// just past them. A missing file yields no lines and offset 0.
func (r Reader) Last(n int) ([]string, int64, error) {
	file, err := os.Open(r.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", r.Path)
	}
	if n <= 0 {
		return nil, info.Size(), nil
	}

	ring := make([]string, 0, n)
	offset, err := r.scan(file, func(line string) {
		if len(ring) == n {
			ring = append(ring[1:], line)
			return
		}
		ring = append(ring, line)
	})
	if err != nil {
		return nil, 0, err
	}
	return ring, offset, nil
}

// Follow delivers matching lines appended after offset until ctx ends. A
// file that shrinks (rotation or truncation) is read again from the start.
func (r Reader) Follow(ctx context.Context, offset int64, fn func(line string)) error {
	poll := r.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := r.readFrom(offset, fn)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r Reader) readFrom(offset int64, fn func(line string)) (int64, error) {
	file, err := os.Open(r.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if offset == info.Size() {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := r.scan(file, fn)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan feeds complete, matching lines to fn and returns how many bytes were
// consumed. A trailing partial line is left for the next read.
func (r Reader) scan(src io.Reader, fn func(line string)) (int64, error) {
	br := bufio.NewReaderSize(src, 64*1024)
	var consumed int64
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		line = strings.TrimRight(line, "\r\n")
		if r.keep(line) {
			fn(line)
		}
	}
}
