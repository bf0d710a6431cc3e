package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"zipp/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zipp.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\nd\n")

	result, err := logs.Tail(path, logs.Options{Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"c", "d"}) {
		t.Fatalf("unexpected lines %v", result.Lines)
	}
	if result.Offset != 8 {
		t.Fatalf("offset = %d, want 8", result.Offset)
	}
}

func TestTailFilterAndPartialLine(t *testing.T) {
	path := writeLog(t, "run=1 a\nrun=2 b\nrun=1 c\nrun=1 partial")

	result, err := logs.Tail(path, logs.Options{Limit: 10, Filter: "run=1"})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !slices.Equal(result.Lines, []string{"run=1 a", "run=1 c"}) {
		t.Fatalf("unexpected lines %v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "absent.log"), logs.Options{Limit: 5})
	if err != nil || len(result.Lines) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", result, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "old\n")
	start, err := logs.Tail(path, logs.Options{})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, start.Offset, logs.Options{Poll: 10 * time.Millisecond}, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("new\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []string{"new"}) {
		t.Fatalf("unexpected follow output %v", got)
	}
}
