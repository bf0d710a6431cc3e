package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"zipp/internal/logging"
	"zipp/internal/services"
)

// CleanResult contains the outcome of a buffer cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo contains metadata about a staging buffer.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	// Marked reports whether the buffer already holds a completion marker,
	// meaning the job verified but crashed before its commit rename.
	Marked bool
}

// List returns every staging buffer under root whose name ends in suffix.
// Buffers are not descended into.
func List(root, suffix, markerName string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" || suffix == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() || path == root || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return filepath.SkipDir
		}
		size, _ := dirSize(path)
		marked := false
		if markerName != "" {
			if _, err := os.Stat(filepath.Join(path, markerName)); err == nil {
				marked = true
			}
		}
		dirs = append(dirs, DirInfo{
			Name:    d.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
			Marked:  marked,
		})
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	return dirs, nil
}

// CleanStale removes staging buffers under root older than maxAge. A zero
// maxAge removes every buffer.
func CleanStale(ctx context.Context, root, suffix string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	dirs, err := List(root, suffix, "")
	if err != nil {
		return CleanResult{Errors: []CleanupError{{Path: root, Error: err}}}
	}
	cutoff := time.Now().Add(-maxAge)
	var paths []string
	for _, dir := range dirs {
		if maxAge > 0 && !dir.ModTime.Before(cutoff) {
			continue
		}
		paths = append(paths, dir.Path)
	}
	return Remove(ctx, paths, logger)
}

// Remove deletes the given buffers, stopping early if ctx is cancelled.
func Remove(ctx context.Context, paths []string, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	for _, dirPath := range paths {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: ctx.Err()})
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			err = services.Wrap(services.ErrFilesystem, "clean", "remove buffer", dirPath, err)
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove staging buffer", "staging_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.ErrorKind(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed staging buffer",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
