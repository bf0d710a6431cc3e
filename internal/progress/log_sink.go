package progress

import (
	"log/slog"

	"zipp/internal/logging"
)

// LogSink writes events to a structured logger. Engine percentages are
// sampled so each job logs at most once per bucket.
type LogSink struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSink{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(25),
	}
}

// Handle implements Sink.
func (s *LogSink) Handle(ev Event, snap Snapshot) {
	switch ev.Kind {
	case KindJobProgress:
		if !s.sampler.ShouldLog(ev.Job, ev.Percent) {
			return
		}
		s.logger.Debug("extraction progress",
			logging.String(logging.FieldArchive, ev.Name),
			logging.Float64("percent", ev.Percent),
			logging.String("message", ev.Message),
		)
	case KindJobStatus:
		attrs := []logging.Attr{
			logging.String(logging.FieldArchive, ev.Name),
			logging.String("status", ev.Status),
			logging.String("target", ev.Target),
			logging.Int("done", terminalCount(snap)),
			logging.Int("total", snap.Total),
		}
		switch ev.Status {
		case "failed":
			s.sampler.Forget(ev.Job)
			attrs = append(attrs, logging.Error(ev.Err), logging.ErrorKind(ev.Err))
			logging.WarnWithContext(s.logger, "extraction failed", "job_failed", append(attrs,
				logging.String(logging.FieldErrorHint, "inspect the staging directory or rerun with --clean-failed"),
				logging.String(logging.FieldImpact, "archive left unextracted"),
			)...)
		case "committed", "skipped":
			s.sampler.Forget(ev.Job)
			s.logger.Info("job "+ev.Status, logging.Args(attrs...)...)
		default:
			s.logger.Debug("job "+ev.Status, logging.Args(attrs...)...)
		}
	case KindFlattenStep:
		attrs := []logging.Attr{
			logging.String(logging.FieldProject, ev.Project),
			logging.String("status", ev.Status),
			logging.Int("depth", ev.Depth),
			logging.String("source", ev.Target),
		}
		if ev.Status == "rolled_back" {
			if len(ev.Collisions) > 0 {
				attrs = append(attrs, logging.Strings("collisions", ev.Collisions))
			}
			if ev.Err != nil {
				attrs = append(attrs, logging.Error(ev.Err), logging.ErrorKind(ev.Err))
			}
			logging.WarnWithContext(s.logger, "flatten rolled back", "flatten_rollback", append(attrs,
				logging.String(logging.FieldErrorHint, "resolve the name collision by hand, then rerun flatten"),
			)...)
			return
		}
		s.logger.Info("flatten level committed", logging.Args(attrs...)...)
	case KindProjectDone:
		s.logger.Debug("flatten project finished",
			logging.String(logging.FieldProject, ev.Project),
			logging.Int("levels", ev.Depth),
		)
	}
}

func terminalCount(snap Snapshot) int {
	return snap.Count("committed") + snap.Count("failed") + snap.Count("skipped")
}
