package sevenzip_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"zipp/internal/services"
	"zipp/internal/services/sevenzip"
)

type stubExecutor struct {
	lines  []string
	err    error
	calls  int
	binary string
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls++
	s.binary = binary
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

func TestExtractBuildsExpectedArguments(t *testing.T) {
	exec := &stubExecutor{lines: []string{"Everything is Ok"}}
	client, err := sevenzip.New("7zz", 0, sevenzip.WithExecutor(exec), sevenzip.WithExtraArgs("-snld", " "))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Extract(context.Background(), "/in/a.7z.001", "/out/a.out_tmp", nil); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if exec.binary != "7zz" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	want := []string{"x", "-o/out/a.out_tmp", "/in/a.7z.001", "-aoa", "-mmt=on", "-p", "-y", "-bsp1", "-snld"}
	got := exec.args[0]
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args: got %v want %v", got, want)
	}
}

func TestExtractReportsProgress(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"  0%",
		" 42% 3 - docs/readme.txt",
		"100% 9",
		"Everything is Ok",
	}}
	client, err := sevenzip.New("7z", 0, sevenzip.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	var updates []sevenzip.ProgressUpdate
	if err := client.Extract(context.Background(), "a.zip", "out", func(u sevenzip.ProgressUpdate) {
		updates = append(updates, u)
	}); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(updates) != 4 {
		t.Fatalf("expected 4 updates, got %d: %+v", len(updates), updates)
	}
	if updates[1].Percent != 42 || updates[1].Message != "docs/readme.txt" {
		t.Fatalf("unexpected parsed update: %+v", updates[1])
	}
	if updates[3].Percent != 100 {
		t.Fatalf("expected final completion update, got %+v", updates[3])
	}
}

func TestExtractWrapsExecutorErrorAsEngineFailure(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"ERROR: Data Error : secret.txt", "Sub items Errors: 1"},
		err:   errors.New("exit status 2"),
	}
	client, err := sevenzip.New("7z", 0, sevenzip.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = client.Extract(context.Background(), "a.rar", "out", nil)
	if err == nil {
		t.Fatal("expected error from executor")
	}
	if !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected engine marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "Data Error") {
		t.Fatalf("expected engine error lines in message, got %q", err.Error())
	}
}

func TestExtractStrictRequiresCompletionBanner(t *testing.T) {
	exec := &stubExecutor{lines: []string{" 50%"}}
	strict, err := sevenzip.New("7z", 0, sevenzip.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := strict.Extract(context.Background(), "a.zip", "out", nil); !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected engine failure without banner, got %v", err)
	}

	lenient, err := sevenzip.New("7z", 0, sevenzip.WithExecutor(exec), sevenzip.WithStrictSuccess(false))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := lenient.Extract(context.Background(), "a.zip", "out", nil); err != nil {
		t.Fatalf("expected lenient client to accept exit 0, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := sevenzip.New("  ", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestExtractValidatesPaths(t *testing.T) {
	client, err := sevenzip.New("7z", 0, sevenzip.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Extract(context.Background(), "", "out", nil); err == nil {
		t.Fatal("expected error for empty archive path")
	}
	if err := client.Extract(context.Background(), "a.zip", "", nil); err == nil {
		t.Fatal("expected error for empty destination")
	}
}
