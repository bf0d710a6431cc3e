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

// Options controls Tail and Follow.
type Options struct {
	// Limit is the number of trailing lines Tail returns. Zero returns none
	// and only reports the end offset.
	Limit int
	// Filter keeps only lines containing this substring when non-empty.
	Filter string
	// Poll is the Follow polling interval (default 250ms).
	Poll time.Duration
}

// Result holds matched lines and the byte offset just past the last line read.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail returns the last Limit matching lines of path. A missing file yields
// an empty result.
func Tail(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []string
	if opts.Limit > 0 {
		ring = make([]string, 0, opts.Limit)
	}
	next := 0
	offset, err := scan(file, opts.Filter, func(line string) {
		if opts.Limit <= 0 {
			return
		}
		if len(ring) < opts.Limit {
			ring = append(ring, line)
			return
		}
		ring[next] = line
		next = (next + 1) % opts.Limit
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[next:]...)
	lines = append(lines, ring[:next]...)
	return Result{Lines: lines, Offset: offset}, nil
}

// Follow polls path from offset and calls emit for each new matching line
// until ctx is done. A truncated file is read again from the start.
func Follow(ctx context.Context, path string, offset int64, opts Options, emit func(string)) error {
	poll := opts.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, opts.Filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter string, emit func(string)) (int64, error) {
	file, err := os.Open(path)
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
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, filter, emit)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan reads complete lines from r, returning the bytes consumed. A trailing
// partial line is left for the next read.
func scan(r io.Reader, filter string, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if filter == "" || strings.Contains(line, filter) {
			emit(line)
		}
	}
}
