package main

import (
	"context"
	"log/slog"

	"zipp/internal/history"
	"zipp/internal/logging"
	"zipp/internal/progress"
)

// runLedger records one CLI invocation in the history store. A nil store
// turns every method into a no-op.
type runLedger struct {
	store  *history.Store
	run    history.Run
	logger *slog.Logger
}

func startLedger(ctx context.Context, store *history.Store, run history.Run, logger *slog.Logger) *runLedger {
	l := &runLedger{store: store, run: run, logger: logger}
	if store == nil {
		return l
	}
	if err := store.StartRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "run ledger write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in zipp history"),
		)
		_ = store.Close()
		l.store = nil
	}
	return l
}

// sink returns the aggregator sink feeding job and step rows, or nil.
func (l *runLedger) sink() progress.Sink {
	if l.store == nil {
		return nil
	}
	return history.NewSink(l.store, l.run.ID, l.logger)
}

func (l *runLedger) finish(ctx context.Context, status string, totals history.Totals) {
	if l.store == nil {
		return
	}
	if err := l.store.FinishRun(context.WithoutCancel(ctx), l.run.ID, status, totals); err != nil {
		logging.WarnWithContext(l.logger, "run ledger write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the run stays listed as running"),
		)
	}
	_ = l.store.Close()
}

func sinks(candidates ...progress.Sink) []progress.Sink {
	out := make([]progress.Sink, 0, len(candidates))
	for _, s := range candidates {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
