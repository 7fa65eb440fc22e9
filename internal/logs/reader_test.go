package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"packrat/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packrat.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	lines, offset, err := logs.Reader{Path: path}.Last(2)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("unexpected offset %d", offset)
	}
}

func TestLastAppliesFilter(t *testing.T) {
	path := writeLog(t, "animals/foo resolved\nplants/fern resolved\nanimals/bar failed\n")

	lines, _, err := logs.Reader{Path: path, Filter: "animals/"}.Last(10)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 2 || lines[1] != "animals/bar failed" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestLastIgnoresPartialLine(t *testing.T) {
	path := writeLog(t, "done\nhalf")

	lines, offset, err := logs.Reader{Path: path}.Last(5)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(lines) != 1 || offset != int64(len("done\n")) {
		t.Fatalf("unexpected lines %#v offset %d", lines, offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Reader{Path: filepath.Join(t.TempDir(), "absent.log")}.Last(5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	reader := logs.Reader{Path: path, Poll: 10 * time.Millisecond}
	_, offset, err := reader.Last(1)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- reader.Follow(ctx, offset, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			if line == "later" {
				cancel()
			}
		})
	}()

	time.Sleep(30 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	if err := <-done; err != context.Canceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}
