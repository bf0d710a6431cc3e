// Package snapshot records a project's original layout before flattening.
//
// The manifest is a text file named after the project, written once at the
// project root and never overwritten, so reruns keep the first record.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zipp/internal/fileutil"
	"zipp/internal/logging"
	"zipp/internal/services"
)

// Manifest formats.
const (
	FormatPaths = "paths"
	FormatTree  = "tree"
)

// Recorder writes project manifests.
type Recorder struct {
	format string
	logger *slog.Logger
}

// NewRecorder returns a recorder using format ("paths" or "tree").
func NewRecorder(format string, logger *slog.Logger) *Recorder {
	if format != FormatTree {
		format = FormatPaths
	}
	return &Recorder{format: format, logger: logging.NewComponentLogger(logger, "snapshot")}
}

// ManifestName returns the manifest file name for a project directory.
func ManifestName(projectDir string) string {
	return filepath.Base(filepath.Clean(projectDir)) + ".txt"
}

// Result describes one Record call.
type Result struct {
	Path    string
	Written bool
	Entries int
}

// Record writes the manifest for projectDir unless one already exists.
func (r *Recorder) Record(projectDir string) (Result, error) {
	projectDir = filepath.Clean(projectDir)
	name := ManifestName(projectDir)
	res := Result{Path: filepath.Join(projectDir, name)}

	if ok, err := fileutil.Exists(res.Path); err != nil {
		return res, services.Wrap(services.ErrFilesystem, "snapshot", "stat manifest", res.Path, err)
	} else if ok {
		return res, nil
	}

	var (
		body    string
		entries int
		err     error
	)
	switch r.format {
	case FormatTree:
		body, entries, err = renderTree(projectDir, name)
	default:
		body, entries, err = renderPaths(projectDir, name)
	}
	if err != nil {
		return res, services.Wrap(services.ErrFilesystem, "snapshot", "walk project", projectDir, err)
	}

	if err := fileutil.WriteFileExclusive(res.Path, []byte(body), 0o644); err != nil {
		if errors.Is(err, fileutil.ErrExists) {
			return res, nil
		}
		return res, services.Wrap(services.ErrFilesystem, "snapshot", "write manifest", res.Path, err)
	}
	res.Written = true
	res.Entries = entries
	r.logger.Debug("manifest written",
		logging.String(logging.FieldProject, filepath.Base(projectDir)),
		logging.String("path", res.Path),
		logging.Int("entries", entries),
	)
	return res, nil
}

// renderPaths lists every entry, hidden ones included, as a slash path
// relative to root in lexical walk order. Directories end in "/".
func renderPaths(root, manifest string) (string, int, error) {
	var b strings.Builder
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == manifest {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		b.WriteString(rel)
		b.WriteByte('\n')
		count++
		return nil
	})
	return b.String(), count, err
}

// renderTree draws the layout as an indented box tree under a header line.
func renderTree(root, manifest string) (string, int, error) {
	project := filepath.Base(root)
	var b strings.Builder
	fmt.Fprintf(&b, "Original Archive Structure: %s\n", project)
	b.WriteString(strings.Repeat("-", 40))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s/\n", project)
	count, err := writeTree(&b, root, "", manifest)
	return b.String(), count, err
}

func writeTree(b *strings.Builder, dir, prefix, skip string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	names := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if skip != "" && e.Name() == skip {
			continue
		}
		names = append(names, e)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

	count := 0
	for i, e := range names {
		last := i == len(names)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		b.WriteString(prefix + connector + e.Name() + "\n")
		count++
		if e.IsDir() {
			n, err := writeTree(b, filepath.Join(dir, e.Name()), prefix+indent, "")
			if err != nil {
				return count, err
			}
			count += n
		}
	}
	return count, nil
}
