package flatten

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zipp/internal/fileutil"
	"zipp/internal/logging"
	"zipp/internal/progress"
	"zipp/internal/services"
	"zipp/internal/snapshot"
)

// Options configures an Engine.
type Options struct {
	Workers   int
	MaxDepth  int
	JunkNames []string
	// DryRun predicts levels without touching the filesystem.
	DryRun bool
}

// Engine flattens every project under a root directory.
type Engine struct {
	opts     Options
	junk     map[string]struct{}
	recorder *snapshot.Recorder
	progress *progress.Aggregator
	logger   *slog.Logger
	token    func() string
}

// NewEngine returns an engine recording manifests through recorder.
func NewEngine(opts Options, recorder *snapshot.Recorder, agg *progress.Aggregator, logger *slog.Logger) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 256
	}
	junk := make(map[string]struct{}, len(opts.JunkNames))
	for _, name := range opts.JunkNames {
		junk[name] = struct{}{}
	}
	return &Engine{
		opts:     opts,
		junk:     junk,
		recorder: recorder,
		progress: agg,
		logger:   logging.NewComponentLogger(logger, "flatten"),
		token: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Projects lists the non-hidden directories directly under root, sorted.
func Projects(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "flatten", "read root", root, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(root, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Run flattens every project under root concurrently. Only an unreadable
// root is returned as an error; per-project problems land in the report.
func (e *Engine) Run(ctx context.Context, root string) (Report, error) {
	root = filepath.Clean(root)
	projects, err := Projects(root)
	if err != nil {
		return Report{Root: root}, err
	}
	e.progress.SetTotal(len(projects))

	results := make([]ProjectResult, len(projects))
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, project := range projects {
		if ctx.Err() != nil {
			results[i] = ProjectResult{Name: filepath.Base(project), Path: project, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			results[i] = e.FlattenProject(ctx, project)
			return nil
		})
	}
	_ = g.Wait()
	return Report{Root: root, DryRun: e.opts.DryRun, Projects: results}, nil
}

// FlattenProject snapshots and collapses a single project.
func (e *Engine) FlattenProject(ctx context.Context, projectDir string) ProjectResult {
	name := filepath.Base(projectDir)
	ctx = services.WithProject(ctx, name)
	logger := logging.WithContext(ctx, e.logger)
	res := ProjectResult{Name: name, Path: projectDir, Segments: []string{name}}
	defer func() {
		e.progress.Publish(progress.Event{Kind: progress.KindProjectDone, Project: name, Depth: res.Levels, Err: res.Err})
	}()

	junk := e.junkFor(projectDir)
	if e.opts.DryRun {
		res.Levels, res.Segments, res.Collisions, res.Err = e.predict(projectDir, junk)
		res.Segments = append([]string{name}, res.Segments...)
		return res
	}

	if e.recorder != nil {
		manifest, err := e.recorder.Record(projectDir)
		if err != nil {
			res.Err = err
			logging.WarnWithContext(logger, "snapshot failed; project left untouched", "snapshot_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "project not flattened"),
			)
			return res
		}
		res.Manifest = manifest
	}

	for depth := 1; depth <= e.opts.MaxDepth; depth++ {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		child, ok, err := convergeable(projectDir, junk)
		if err != nil {
			res.Err = services.Wrap(services.ErrFilesystem, "flatten", "list project", projectDir, err)
			return res
		}
		if !ok {
			return res
		}
		op := e.collapse(projectDir, child, depth, junk)
		res.Operations = append(res.Operations, op)
		e.progress.Publish(progress.Event{
			Kind:       progress.KindFlattenStep,
			Project:    name,
			Target:     op.SourceDir,
			Status:     string(op.Status),
			Depth:      op.Depth,
			Collisions: op.Collisions,
			Err:        op.Err,
		})
		if op.Status != StatusCommitted {
			return res
		}
		res.Levels++
		res.Segments = append(res.Segments, child)
		if op.Err != nil {
			// Committed, but the emptied temporary directory could not be
			// removed and would block the next level.
			res.Err = op.Err
			return res
		}
	}
	logging.WarnWithContext(logger, "flatten depth limit reached", "flatten_depth_limit",
		logging.Int("max_depth", e.opts.MaxDepth),
		logging.String(logging.FieldErrorHint, "raise flatten.max_depth and rerun"),
	)
	return res
}

func (e *Engine) junkFor(projectDir string) map[string]struct{} {
	junk := make(map[string]struct{}, len(e.junk)+1)
	for k := range e.junk {
		junk[k] = struct{}{}
	}
	junk[snapshot.ManifestName(projectDir)] = struct{}{}
	return junk
}

// discardable reports whether a colliding entry of the temp directory may be
// dropped along with it. Only configured junk qualifies; an entry named like
// the project manifest is user data and must collide.
func (e *Engine) discardable(name string) bool {
	_, ok := e.junk[name]
	return ok
}

func isVisible(name string, junk map[string]struct{}) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, isJunk := junk[name]
	return !isJunk
}

// convergeable returns the single visible child directory of dir, if any.
// Symlinks never count as directories.
func convergeable(dir string, junk map[string]struct{}) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	var visible []os.DirEntry
	for _, e := range entries {
		if isVisible(e.Name(), junk) {
			visible = append(visible, e)
		}
	}
	if len(visible) != 1 || !visible[0].IsDir() {
		return "", false, nil
	}
	return visible[0].Name(), true, nil
}

// collapse performs one level: rename child to a temp name, plan, move, and
// verify. The returned operation is Committed or RolledBack.
func (e *Engine) collapse(projectDir, child string, depth int, junk map[string]struct{}) Operation {
	op := Operation{
		Project:   filepath.Base(projectDir),
		SourceDir: filepath.Join(projectDir, child),
		TempName:  tempName(child, e.token()),
		TargetDir: projectDir,
		Depth:     depth,
		Status:    StatusPlanned,
	}
	temp := op.TempPath()

	if err := fileutil.RenameNoReplace(op.SourceDir, temp); err != nil {
		op.Status = StatusRolledBack
		op.Err = services.Wrap(services.ErrFilesystem, "flatten", "rename to temp", op.SourceDir, err)
		return op
	}

	entries, err := os.ReadDir(temp)
	if err != nil {
		return e.rollback(op, nil, services.Wrap(services.ErrFilesystem, "flatten", "list temp", temp, err))
	}
	var moves []string
	for _, entry := range entries {
		name := entry.Name()
		taken, err := fileutil.Exists(filepath.Join(projectDir, name))
		if err != nil {
			return e.rollback(op, nil, services.Wrap(services.ErrFilesystem, "flatten", "plan", name, err))
		}
		if !taken {
			moves = append(moves, name)
			continue
		}
		if e.discardable(name) {
			continue
		}
		op.Collisions = append(op.Collisions, name)
	}
	if len(op.Collisions) > 0 {
		return e.rollback(op, nil, services.Wrap(services.ErrCollision, "flatten", "plan",
			fmt.Sprintf("%d name(s) already exist in %s", len(op.Collisions), projectDir), nil))
	}

	moved := make([]string, 0, len(moves))
	for _, name := range moves {
		if err := fileutil.RenameNoReplace(filepath.Join(temp, name), filepath.Join(projectDir, name)); err != nil {
			marker := services.ErrFilesystem
			if errors.Is(err, fileutil.ErrExists) {
				marker = services.ErrCollision
				op.Collisions = append(op.Collisions, name)
			}
			return e.rollback(op, moved, services.Wrap(marker, "flatten", "move", name, err))
		}
		moved = append(moved, name)
	}
	op.Status = StatusMoved

	remaining, err := os.ReadDir(temp)
	if err != nil {
		return e.rollback(op, moved, services.Wrap(services.ErrFilesystem, "flatten", "verify", temp, err))
	}
	for _, entry := range remaining {
		if isVisible(entry.Name(), junk) {
			op.Collisions = append(op.Collisions, entry.Name())
		}
	}
	if len(op.Collisions) > 0 {
		return e.rollback(op, moved, services.Wrap(services.ErrCollision, "flatten", "verify", "temporary directory not empty", nil))
	}
	op.Status = StatusVerified

	if err := os.RemoveAll(temp); err != nil {
		op.Err = services.Wrap(services.ErrFilesystem, "flatten", "remove temp", temp, err)
	}
	_ = fileutil.SyncDir(projectDir)
	op.Status = StatusCommitted
	return op
}

// nameMax is the per-component byte limit of common Linux filesystems.
const nameMax = 255

// tempName builds "<child>_flat_tmp_<token>", shortening child on a rune
// boundary so the result fits in one path component.
func tempName(child, token string) string {
	suffix := "_flat_tmp_" + token
	if budget := nameMax - len(suffix); len(child) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(child[cut]) {
			cut--
		}
		child = child[:cut]
	}
	return child + suffix
}

// rollback moves already-relocated entries back into the temp directory and
// restores its original name.
func (e *Engine) rollback(op Operation, moved []string, cause error) Operation {
	temp := op.TempPath()
	var undoErrs []error
	for i := len(moved) - 1; i >= 0; i-- {
		name := moved[i]
		if err := fileutil.RenameNoReplace(filepath.Join(op.TargetDir, name), filepath.Join(temp, name)); err != nil {
			undoErrs = append(undoErrs, err)
		}
	}
	if err := fileutil.RenameNoReplace(temp, op.SourceDir); err != nil {
		undoErrs = append(undoErrs, err)
	}
	op.Status = StatusRolledBack
	op.Err = cause
	if len(undoErrs) > 0 {
		op.Err = errors.Join(cause, services.Wrap(services.ErrFilesystem, "flatten", "rollback", "rollback incomplete; inspect "+temp, errors.Join(undoErrs...)))
		logging.ErrorWithContext(e.logger, "flatten rollback incomplete", "flatten_rollback_incomplete",
			logging.String(logging.FieldProject, op.Project),
			logging.String("temp", temp),
			logging.Error(op.Err),
			logging.String(logging.FieldErrorHint, "move the listed entries back by hand"),
		)
	}
	return op
}

// predict simulates the loop without mutating anything.
func (e *Engine) predict(projectDir string, junk map[string]struct{}) (int, []string, []string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return 0, nil, nil, services.Wrap(services.ErrFilesystem, "flatten", "list project", projectDir, err)
	}
	names := make(map[string]os.DirEntry, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = entry
	}

	var segments []string
	source := projectDir
	for level := 0; level < e.opts.MaxDepth; level++ {
		var visible []os.DirEntry
		for name, entry := range names {
			if isVisible(name, junk) {
				visible = append(visible, entry)
			}
		}
		if len(visible) != 1 || !visible[0].IsDir() {
			return level, segments, nil, nil
		}
		child := visible[0].Name()
		source = filepath.Join(source, child)
		children, err := os.ReadDir(source)
		if err != nil {
			return level, segments, nil, services.Wrap(services.ErrFilesystem, "flatten", "list child", source, err)
		}
		delete(names, child)
		var collisions []string
		for _, c := range children {
			if _, taken := names[c.Name()]; !taken {
				continue
			}
			if !e.discardable(c.Name()) {
				collisions = append(collisions, c.Name())
			}
		}
		if len(collisions) > 0 {
			sort.Strings(collisions)
			return level, segments, collisions, nil
		}
		for _, c := range children {
			if _, taken := names[c.Name()]; !taken {
				names[c.Name()] = c
			}
		}
		segments = append(segments, child)
	}
	return e.opts.MaxDepth, segments, nil, nil
}
