package history

import (
	"context"
	"log/slog"
	"sync"

	"zipp/internal/logging"
	"zipp/internal/progress"
	"zipp/internal/services"
)

// Sink writes progress events into the ledger for one run. Write failures
// are logged once and otherwise ignored; the ledger never fails a run.
type Sink struct {
	store  *Store
	runID  string
	logger *slog.Logger
	warn   sync.Once
}

// NewSink returns a progress sink recording under runID.
func NewSink(store *Store, runID string, logger *slog.Logger) *Sink {
	return &Sink{store: store, runID: runID, logger: logging.NewComponentLogger(logger, "history")}
}

// Handle implements progress.Sink.
func (s *Sink) Handle(ev progress.Event, _ progress.Snapshot) {
	if s == nil || s.store == nil {
		return
	}
	ctx := context.Background()
	var err error
	switch ev.Kind {
	case progress.KindJobStatus:
		rec := JobRecord{
			RunID:     s.runID,
			Archive:   ev.Job,
			Target:    ev.Target,
			Status:    ev.Status,
			UpdatedAt: ev.Time,
		}
		if ev.Err != nil {
			rec.Error = ev.Err.Error()
			rec.ErrorKind = services.Kind(ev.Err)
		}
		err = s.store.RecordJob(ctx, rec)
	case progress.KindFlattenStep:
		rec := StepRecord{
			RunID:      s.runID,
			Project:    ev.Project,
			Source:     ev.Target,
			Depth:      ev.Depth,
			Status:     ev.Status,
			Collisions: ev.Collisions,
			CreatedAt:  ev.Time,
		}
		if ev.Err != nil {
			rec.Error = ev.Err.Error()
		}
		err = s.store.RecordFlattenStep(ctx, rec)
	default:
		return
	}
	if err != nil {
		s.warn.Do(func() {
			logging.WarnWithContext(s.logger, "run ledger write failed", "history_write_failed",
				logging.Error(err),
				logging.String("db", s.store.Path()),
				logging.String(logging.FieldImpact, "history for this run is incomplete"),
				logging.String(logging.FieldErrorHint, "check the state directory or set history.enabled = false"),
			)
		})
	}
}
