package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zipp/internal/fileutil"
	"zipp/internal/logging"
	"zipp/internal/progress"
	"zipp/internal/services"
	"zipp/internal/services/sevenzip"
)

// Stager drives a single job through Pending → Extracting → Verified →
// Committed, or to Failed/Skipped.
type Stager struct {
	engine       sevenzip.Extractor
	layout       Layout
	clearResidue bool
	progress     *progress.Aggregator
	logger       *slog.Logger
	now          func() time.Time
}

// StagerOption configures a Stager.
type StagerOption func(*Stager)

// WithProgress publishes transitions to agg.
func WithProgress(agg *progress.Aggregator) StagerOption {
	return func(s *Stager) { s.progress = agg }
}

// WithLogger sets the stager's logger.
func WithLogger(logger *slog.Logger) StagerOption {
	return func(s *Stager) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClearResidue controls whether uncommitted residue is deleted before
// extraction. When disabled, residue fails the job instead.
func WithClearResidue(enabled bool) StagerOption {
	return func(s *Stager) { s.clearResidue = enabled }
}

// NewStager returns a stager extracting through engine.
func NewStager(engine sevenzip.Extractor, layout Layout, opts ...StagerOption) *Stager {
	s := &Stager{
		engine:       engine,
		layout:       layout,
		clearResidue: true,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "extract")
	return s
}

// Run executes job to a terminal status. Errors are recorded on the job,
// never returned.
func (s *Stager) Run(ctx context.Context, job *Job) {
	ctx = services.WithArchive(ctx, job.Group.DisplayName())
	logger := logging.WithContext(ctx, s.logger)
	job.Started = s.now()
	defer func() { job.Finished = s.now() }()

	if s.layout.Committed(job.Group.TargetDir) {
		s.transition(job, StatusSkipped, nil)
		return
	}

	if s.clearResidue {
		cleared, err := ClearResidue(job, s.layout)
		if err != nil {
			s.transition(job, StatusFailed, err)
			return
		}
		if len(cleared) > 0 {
			logger.Info("cleared uncommitted residue",
				logging.Strings("paths", cleared),
				logging.String(logging.FieldEventType, "residue_cleared"),
			)
		}
	} else if residue := Residue(job, s.layout); len(residue) > 0 {
		s.transition(job, StatusFailed, services.Wrap(services.ErrCollision, "extract", "check residue",
			fmt.Sprintf("uncommitted output present at %s", residue[0]), nil))
		return
	}

	if err := os.MkdirAll(filepath.Dir(job.TempDir), 0o755); err != nil {
		s.transition(job, StatusFailed, services.Wrap(services.ErrFilesystem, "extract", "create parent", job.TempDir, err))
		return
	}
	if err := os.Mkdir(job.TempDir, 0o755); err != nil {
		s.transition(job, StatusFailed, services.Wrap(services.ErrFilesystem, "extract", "create staging", job.TempDir, err))
		return
	}

	s.transition(job, StatusExtracting, nil)
	logger.Debug("invoking engine",
		logging.String("engine_path", job.Group.EnginePath()),
		logging.Int("volumes", job.Group.VolumeCount()),
	)
	err := s.engine.Extract(ctx, job.Group.EnginePath(), job.TempDir, func(update sevenzip.ProgressUpdate) {
		s.progress.Publish(progress.Event{
			Kind:    progress.KindJobProgress,
			Job:     job.Group.PrimaryPath,
			Name:    job.Group.DisplayName(),
			Target:  job.Group.TargetDir,
			Percent: update.Percent,
			Message: update.Message,
		})
	})
	if err != nil {
		if !errors.Is(err, services.ErrEngine) {
			err = services.Wrap(services.ErrEngine, "extract", "run engine", job.Group.DisplayName(), err)
		}
		s.transition(job, StatusFailed, err)
		return
	}

	if err := s.verify(ctx, job); err != nil {
		s.unmark(logger, job)
		s.transition(job, StatusFailed, err)
		return
	}
	s.transition(job, StatusVerified, nil)

	if err := s.commit(job); err != nil {
		s.unmark(logger, job)
		s.transition(job, StatusFailed, err)
		return
	}
	s.transition(job, StatusCommitted, nil)
}

// verify records the engine's success as a durable marker inside TempDir.
func (s *Stager) verify(ctx context.Context, job *Job) error {
	info, err := os.Stat(job.TempDir)
	if err != nil || !info.IsDir() {
		return services.Wrap(services.ErrFilesystem, "extract", "verify staging", "staging directory vanished", err)
	}
	runID, _ := services.RunIDFromContext(ctx)
	if err := fileutil.WriteSynced(job.MarkerPath, markerContents(job, runID, s.now()), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "extract", "write marker", job.MarkerPath, err)
	}
	if err := fileutil.SyncDir(job.TempDir); err != nil {
		return services.Wrap(services.ErrFilesystem, "extract", "sync staging", job.TempDir, err)
	}
	return nil
}

// unmark removes the marker from a staging buffer that will not be committed,
// so a failed buffer never looks like a finished extraction.
func (s *Stager) unmark(logger *slog.Logger, job *Job) {
	err := os.Remove(job.MarkerPath)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}
	logging.WarnWithContext(logger, "failed to remove marker from failed staging directory", "marker_cleanup_failed",
		logging.String("marker", job.MarkerPath),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete the marker or the staging directory by hand"),
		logging.String(logging.FieldImpact, "staging directory is reported as verified"),
	)
}

// commit moves TempDir onto TargetDir with one rename. An entry that appeared
// at TargetDir after residue clearing is never replaced.
func (s *Stager) commit(job *Job) error {
	if err := fileutil.RenameNoReplace(job.TempDir, job.Group.TargetDir); err != nil {
		marker := services.ErrFilesystem
		if errors.Is(err, fileutil.ErrExists) {
			marker = services.ErrCollision
		}
		return services.Wrap(marker, "extract", "commit", job.Group.TargetDir, err)
	}
	if err := fileutil.SyncDir(filepath.Dir(job.Group.TargetDir)); err != nil {
		// The rename already happened; the job stays committed.
		logging.WarnWithContext(s.logger, "parent directory sync failed", "commit_sync_failed",
			logging.String("target", job.Group.TargetDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "commit may not survive a power loss"),
		)
	}
	return nil
}

func (s *Stager) transition(job *Job, status Status, err error) {
	job.Status = status
	job.Err = err
	s.progress.Publish(progress.Event{
		Kind:   progress.KindJobStatus,
		Job:    job.Group.PrimaryPath,
		Name:   job.Group.DisplayName(),
		Target: job.Group.TargetDir,
		Status: string(status),
		Err:    err,
	})
}
