package logging

import (
	"context"
	"log/slog"

	"zipp/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldArchive is the standardized structured logging key for archive group names.
	FieldArchive = "archive"
	// FieldProject is the standardized structured logging key for flatten project names.
	FieldProject = "project"
	// FieldEventType classifies a log line for filtering (job_commit, flatten_rollback, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step a user should take after a warning or error.
	FieldErrorHint = "error_hint"
)

// WithRun annotates ctx with the run identifier used to correlate log lines
// and ledger rows.
func WithRun(ctx context.Context, runID string) context.Context {
	return services.WithRunID(ctx, runID)
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if name, ok := services.ArchiveFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldArchive, name))
	}
	if name, ok := services.ProjectFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProject, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
