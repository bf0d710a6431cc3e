package extract

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"zipp/internal/logging"
	"zipp/internal/progress"
)

// Runner executes one job to a terminal status.
type Runner interface {
	Run(ctx context.Context, job *Job)
}

// Pool runs jobs with bounded concurrency.
type Pool struct {
	workers  int
	runner   Runner
	progress *progress.Aggregator
	logger   *slog.Logger
}

// NewPool returns a pool of workers (minimum 1) driving runner.
func NewPool(workers int, runner Runner, agg *progress.Aggregator, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:  workers,
		runner:   runner,
		progress: agg,
		logger:   logging.NewComponentLogger(logger, "pool"),
	}
}

// Result aggregates a finished pool run.
type Result struct {
	Jobs      []*Job
	Committed int
	Failed    int
	Skipped   int
	// NotStarted counts jobs left Pending because the run was interrupted.
	NotStarted int
}

// FailedJobs returns every job that ended Failed.
func (r Result) FailedJobs() []*Job {
	var out []*Job
	for _, job := range r.Jobs {
		if job.Status == StatusFailed {
			out = append(out, job)
		}
	}
	return out
}

// OK reports whether every job ended Committed or Skipped.
func (r Result) OK() bool {
	return r.Failed == 0 && r.NotStarted == 0
}

// Run dispatches jobs and blocks until all started jobs are terminal.
// Cancelling ctx stops dispatch; engine invocations already running finish.
// Jobs already marked Skipped at discovery are reported without running.
func (p *Pool) Run(ctx context.Context, jobs []*Job) Result {
	p.progress.SetTotal(len(jobs))
	for _, job := range jobs {
		p.progress.Publish(progress.Event{
			Kind:   progress.KindJobStatus,
			Job:    job.Group.PrimaryPath,
			Name:   job.Group.DisplayName(),
			Target: job.Group.TargetDir,
			Status: string(job.Status),
		})
	}

	runCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, job := range jobs {
		if job.Status != StatusPending {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.runner.Run(runCtx, job)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Jobs: jobs}
	for _, job := range jobs {
		switch job.Status {
		case StatusCommitted:
			result.Committed++
		case StatusFailed:
			result.Failed++
		case StatusSkipped:
			result.Skipped++
		default:
			result.NotStarted++
		}
	}
	if result.NotStarted > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "run interrupted before all jobs started", "pool_interrupted",
			logging.Int("not_started", result.NotStarted),
			logging.String(logging.FieldErrorHint, "rerun the same command to resume"),
			logging.String(logging.FieldImpact, "some archives were not extracted"),
		)
	}
	return result
}
