package sevenzip

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"zipp/internal/services"
)

// completionBanner is printed by 7-Zip only when every item was extracted
// without error.
const completionBanner = "Everything is Ok"

const maxErrorLines = 8

// ProgressUpdate captures 7-Zip progress output.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Extractor defines the behaviour required by the staged extractor.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string, progress func(ProgressUpdate)) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithStrictSuccess controls whether a zero exit status alone is accepted as
// success. When strict, the completion banner must also be observed.
func WithStrictSuccess(strict bool) Option {
	return func(c *Client) {
		c.strict = strict
	}
}

// WithExtraArgs appends additional 7-Zip switches after the defaults.
func WithExtraArgs(args ...string) Option {
	return func(c *Client) {
		for _, arg := range args {
			if arg = strings.TrimSpace(arg); arg != "" {
				c.extraArgs = append(c.extraArgs, arg)
			}
		}
	}
}

// Client wraps 7-Zip CLI interactions.
type Client struct {
	binary    string
	timeout   time.Duration
	strict    bool
	extraArgs []string
	exec      Executor
}

// New constructs a 7-Zip client. A timeoutSeconds of zero disables the
// per-archive timeout.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("7z binary required")
	}
	client := &Client{
		binary: binary,
		strict: true,
		exec:   commandExecutor{},
	}
	if timeoutSeconds > 0 {
		client.timeout = time.Duration(timeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the resolved engine executable.
func (c *Client) Binary() string {
	return c.binary
}

// Extract runs 7-Zip against archivePath, writing into destDir. destDir must
// already exist; the caller owns its lifecycle.
func (c *Client) Extract(ctx context.Context, archivePath, destDir string, progress func(ProgressUpdate)) error {
	if strings.TrimSpace(archivePath) == "" {
		return errors.New("archive path required")
	}
	if strings.TrimSpace(destDir) == "" {
		return errors.New("destination directory required")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		sawBanner  bool
		errorLines []string
	)
	runErr := c.exec.Run(runCtx, c.binary, c.buildArgs(archivePath, destDir), func(line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		if strings.Contains(trimmed, completionBanner) {
			sawBanner = true
			return
		}
		if isErrorLine(trimmed) && len(errorLines) < maxErrorLines {
			errorLines = append(errorLines, trimmed)
			return
		}
		if progress == nil {
			return
		}
		if update, ok := parseProgress(trimmed); ok {
			progress(update)
		}
	})

	if runErr != nil {
		return services.Wrap(services.ErrEngine, "extract", "7z", summarize(errorLines), runErr)
	}
	if c.strict && !sawBanner {
		message := "engine exited cleanly without reporting complete success"
		if len(errorLines) > 0 {
			message = summarize(errorLines)
		}
		return services.Wrap(services.ErrEngine, "extract", "7z", message, nil)
	}
	if progress != nil {
		progress(ProgressUpdate{Percent: 100, Message: completionBanner})
	}
	return nil
}

func (c *Client) buildArgs(archivePath, destDir string) []string {
	args := []string{
		"x",
		"-o" + destDir,
		archivePath,
		"-aoa",
		"-mmt=on",
		"-p",
		"-y",
		"-bsp1",
	}
	return append(args, c.extraArgs...)
}

func isErrorLine(line string) bool {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "ERROR"):
		return true
	case strings.HasPrefix(line, "Can't open as archive"):
		return true
	case strings.HasPrefix(line, "Sub items Errors"):
		return true
	case strings.Contains(line, "Wrong password"):
		return true
	case strings.HasPrefix(line, "Unexpected end of archive"):
		return true
	case strings.HasPrefix(line, "Missing volume"):
		return true
	}
	return false
}

func summarize(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "; ")
}

// parseProgress reads -bsp1 lines such as " 42% 17 - docs/readme.txt".
func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, '%')
	if idx <= 0 {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(line[:idx]), 64)
	if err != nil || percent < 0 || percent > 100 {
		return ProgressUpdate{}, false
	}
	update := ProgressUpdate{Percent: percent}
	rest := strings.TrimSpace(line[idx+1:])
	if dash := strings.Index(rest, " - "); dash >= 0 {
		update.Message = strings.TrimSpace(rest[dash+3:])
	}
	return update, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// Stdin stays nil so the child reads /dev/null and password prompts fail fast.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var mu sync.Mutex

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Split(scanLinesOrCarriageReturns)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// scanLinesOrCarriageReturns splits on \n and on the \r (or backspace runs)
// 7-Zip uses to redraw its progress line in place.
func scanLinesOrCarriageReturns(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' || b == '\b' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
