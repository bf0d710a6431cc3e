package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"zipp/internal/archive"
	"zipp/internal/config"
	"zipp/internal/deps"
	"zipp/internal/extract"
	"zipp/internal/history"
	"zipp/internal/logging"
	"zipp/internal/preflight"
	"zipp/internal/progress"
	"zipp/internal/runlock"
	"zipp/internal/services"
	"zipp/internal/services/sevenzip"
	"zipp/internal/staging"
)

type extractOptions struct {
	output      string
	workers     int
	recursive   bool
	yes         bool
	dryRun      bool
	cleanFailed bool
	json        bool
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract <input-dir>",
		Short: "Discover archive groups and extract each through a staged buffer",
		Long: `Discover archives under input-dir, group multi-volume sets, and extract
every group into its own target directory. Each extraction lands in a
"<target>.out_tmp" buffer, is marked complete, and is committed with a
single rename. Committed targets are skipped on later runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, ctx, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Root directory for extracted targets (default: beside each archive)")
	cmd.Flags().IntVarP(&opts.workers, "threads", "t", 0, "Concurrent extractions (default: extract.workers)")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Scan subdirectories of input-dir")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Proceed without confirmation")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the plan and exit")
	cmd.Flags().BoolVar(&opts.cleanFailed, "clean-failed", false, "Remove staging buffers of failed jobs")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit the plan and result as JSON")
	return cmd
}

type extractPlan struct {
	input   string
	output  string
	layout  extract.Layout
	scan    archive.Plan
	jobs    []*extract.Job
	pending []*extract.Job
	residue []string
}

func runExtract(cmd *cobra.Command, ctx *commandContext, inputArg string, opts extractOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	input, err := filepath.Abs(inputArg)
	if err != nil {
		return fmt.Errorf("resolve input: %w", err)
	}
	var output string
	if strings.TrimSpace(opts.output) != "" {
		if output, err = filepath.Abs(opts.output); err != nil {
			return fmt.Errorf("resolve output: %w", err)
		}
	}
	workers := cfg.Extract.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}
	recursive := opts.recursive || cfg.Extract.Recursive

	if output != "" && !opts.dryRun {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return services.Wrap(services.ErrFilesystem, "extract", "create output", output, err)
		}
	}
	writeRoot := output
	if writeRoot == "" {
		writeRoot = input
	}
	targets := []preflight.Target{{Name: "Input directory", Path: input}}
	if !opts.dryRun {
		targets = append(targets, preflight.Target{Name: "Output directory", Path: writeRoot, Write: true})
	}
	if failed := preflight.Failed(preflight.RunAll(cfg, !opts.dryRun, targets...)); len(failed) > 0 {
		return preflightError(failed)
	}

	var lock *runlock.Lock
	if !opts.dryRun {
		lock, err = runlock.Acquire(cfg.Paths.StateDir, writeRoot)
		if err != nil {
			if errors.Is(err, runlock.ErrLocked) {
				return fmt.Errorf("another zipp run is using %s", writeRoot)
			}
			return err
		}
		defer lock.Release()
	}

	plan, err := buildExtractPlan(cfg, input, output, recursive)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if !opts.json {
		renderExtractPlan(out, plan, colorize)
	}

	if opts.dryRun {
		if opts.json {
			return writeJSON(cmd, extractJSONFrom("", plan, nil, true))
		}
		return nil
	}
	if len(plan.pending) == 0 {
		if opts.json {
			return writeJSON(cmd, extractJSONFrom("", plan, nil, false))
		}
		fmt.Fprintln(out, "Nothing to extract.")
		return nil
	}
	if needsConfirmation(cmd, opts.yes || opts.json) {
		question := fmt.Sprintf("Extract %d archive group(s)?", len(plan.pending))
		if len(plan.residue) > 0 {
			question = fmt.Sprintf("Extract %d archive group(s) and delete %d residue path(s)?", len(plan.pending), len(plan.residue))
		}
		if !confirm(cmd.InOrStdin(), out, question) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	binary, err := deps.ResolveEngine(cfg.EngineCandidates())
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "extract", "resolve engine", "no runnable 7-Zip binary", err)
	}
	engine, err := sevenzip.New(binary, cfg.Engine.TimeoutSeconds,
		sevenzip.WithStrictSuccess(cfg.Engine.StrictSuccess),
		sevenzip.WithExtraArgs(cfg.Engine.ExtraArgs...),
	)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "extract", "engine", "construct engine client", err)
	}

	runID := uuid.NewString()
	runCtx := logging.WithStage(logging.WithRun(cmd.Context(), runID), "extract")
	runLogger := logging.WithContext(runCtx, logger)
	runLogger.Info("extract run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("input", input),
		logging.String("output", output),
		logging.String("engine", binary),
		logging.Int("workers", workers),
		logging.Int("pending", len(plan.pending)),
	)

	ledger := startLedger(runCtx, ctx.openHistory(runLogger), history.Run{
		ID:        runID,
		Command:   "extract",
		Root:      input,
		Output:    output,
		StartedAt: time.Now(),
	}, runLogger)

	var bar *barSink
	candidates := []progress.Sink{progress.NewLogSink(runLogger), ledger.sink()}
	if !opts.json && isTerminal(cmd.ErrOrStderr()) {
		bar = newBarSink(cmd.ErrOrStderr(), len(plan.jobs), "extracting")
		candidates = append(candidates, bar)
	}
	agg := progress.New(len(plan.jobs), sinks(candidates...)...)

	stager := extract.NewStager(engine, plan.layout,
		extract.WithProgress(agg),
		extract.WithLogger(runLogger),
		extract.WithClearResidue(cfg.Extract.ClearResidue),
	)
	result := extract.NewPool(workers, stager, agg, runLogger).Run(runCtx, plan.jobs)
	if bar != nil {
		bar.Finish()
	}

	var cleaned staging.CleanResult
	if opts.cleanFailed {
		var paths []string
		for _, job := range result.FailedJobs() {
			paths = append(paths, job.TempDir)
		}
		cleaned = staging.Remove(runCtx, paths, runLogger)
	}

	status := history.RunOK
	switch {
	case cmd.Context().Err() != nil:
		status = history.RunInterrupted
	case !result.OK():
		status = history.RunFailed
	}
	ledger.finish(runCtx, status, history.Totals{
		Committed: result.Committed,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	})
	runLogger.Info("extract run finished",
		logging.String(logging.FieldEventType, "run_finish"),
		logging.String("status", status),
		logging.Int("committed", result.Committed),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Int("not_started", result.NotStarted),
	)

	if opts.json {
		if err := writeJSON(cmd, extractJSONFrom(runID, plan, &result, false)); err != nil {
			return err
		}
	} else {
		renderExtractSummary(out, runID, result, cleaned, colorize)
	}
	if !result.OK() {
		return &incompleteRunError{summary: fmt.Sprintf("%d failed, %d not started", result.Failed, result.NotStarted)}
	}
	return nil
}

func buildExtractPlan(cfg *config.Config, input, output string, recursive bool) (extractPlan, error) {
	layout := extract.Layout{TempSuffix: cfg.Extract.TempSuffix, MarkerName: cfg.Extract.MarkerName}
	scan, err := archive.Scan(input, archive.Options{
		OutputDir:           output,
		Recursive:           recursive,
		SupportedExtensions: cfg.Extract.SupportedExtensions,
		TempSuffix:          cfg.Extract.TempSuffix,
		MarkerName:          cfg.Extract.MarkerName,
	})
	if err != nil {
		return extractPlan{}, err
	}
	plan := extractPlan{
		input:  input,
		output: output,
		layout: layout,
		scan:   scan,
		jobs:   extract.NewJobs(scan.Groups, layout),
	}
	for _, job := range plan.jobs {
		if job.Status != extract.StatusPending {
			continue
		}
		plan.pending = append(plan.pending, job)
		plan.residue = append(plan.residue, extract.Residue(job, layout)...)
	}
	return plan, nil
}

func renderExtractPlan(w io.Writer, plan extractPlan, colorize bool) {
	if len(plan.pending) > 0 {
		rows := make([][]string, 0, len(plan.pending))
		for i, job := range plan.pending {
			g := job.Group
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				g.DisplayName(),
				string(g.Format),
				strconv.Itoa(g.VolumeCount()),
				sizeLabel(g.Size),
				relativeTo(plan.output, plan.input, g.TargetDir),
			})
		}
		fmt.Fprintln(w, renderTable("Extraction plan",
			[]string{"#", "Archive", "Type", "Volumes", "Size", "Target"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	if len(plan.residue) > 0 {
		fmt.Fprintln(w, "Residue to be deleted before extraction:")
		for _, path := range plan.residue {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}

	skipped := len(plan.jobs) - len(plan.pending)
	pairs := [][2]string{
		{"Files scanned", strconv.Itoa(plan.scan.TotalFiles)},
		{"Archive groups", strconv.Itoa(len(plan.jobs))},
		{"Single archives", strconv.Itoa(plan.scan.SingleCount())},
		{"Multi-volume sets", strconv.Itoa(plan.scan.MultiCount())},
		{"Pending", strconv.Itoa(len(plan.pending))},
		{"Already extracted", strconv.Itoa(skipped)},
		{"Ignored files", strconv.Itoa(len(plan.scan.Ignored))},
	}
	exts := make([]string, 0, len(plan.scan.IgnoredByExt))
	for ext := range plan.scan.IgnoredByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		pairs = append(pairs, [2]string{"  ignored " + ext, strconv.Itoa(plan.scan.IgnoredByExt[ext])})
	}
	fmt.Fprintln(w, keyValueTable("Scan", pairs))

	for _, ign := range plan.scan.Ignored {
		if strings.Contains(ign.Reason, services.ErrAmbiguous.Error()) {
			fmt.Fprintf(w, "%s %s: %s\n", statusLabel("skipped", colorize), ign.Path, ign.Reason)
		}
	}
}

func renderExtractSummary(w io.Writer, runID string, result extract.Result, cleaned staging.CleanResult, colorize bool) {
	pairs := [][2]string{
		{"Run", runID},
		{statusLabel("committed", colorize), strconv.Itoa(result.Committed)},
		{statusLabel("skipped", colorize), strconv.Itoa(result.Skipped)},
		{statusLabel("failed", colorize), strconv.Itoa(result.Failed)},
	}
	if result.NotStarted > 0 {
		pairs = append(pairs, [2]string{statusLabel("pending", colorize), strconv.Itoa(result.NotStarted)})
	}
	fmt.Fprintln(w, keyValueTable("Summary", pairs))

	failed := result.FailedJobs()
	if len(failed) > 0 {
		rows := make([][]string, 0, len(failed))
		for _, job := range failed {
			rows = append(rows, []string{job.Group.PrimaryPath, services.Kind(job.Err), errorText(job.Err)})
		}
		fmt.Fprintln(w, renderTable("Failed", []string{"Archive", "Kind", "Error"}, rows, nil))
	}
	for _, path := range cleaned.Removed {
		fmt.Fprintf(w, "removed %s\n", path)
	}
	for _, e := range cleaned.Errors {
		fmt.Fprintf(w, "could not remove %s: %v\n", e.Path, e.Error)
	}
	if result.NotStarted > 0 {
		fmt.Fprintln(w, "Run interrupted; rerun the same command to resume.")
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// relativeTo shortens path against the output root, or the input root when
// targets sit beside their archives.
func relativeTo(output, input, path string) string {
	base := output
	if base == "" {
		base = input
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(parts, "; "), nil)
}

type extractJobJSON struct {
	Archive string   `json:"archive"`
	Format  string   `json:"format"`
	Volumes []string `json:"volumes"`
	Size    int64    `json:"size"`
	Target  string   `json:"target"`
	Status  string   `json:"status"`
	Kind    string   `json:"error_kind,omitempty"`
	Error   string   `json:"error,omitempty"`
	Seconds float64  `json:"seconds,omitempty"`
}

type extractJSON struct {
	RunID      string           `json:"run_id,omitempty"`
	Input      string           `json:"input"`
	Output     string           `json:"output,omitempty"`
	DryRun     bool             `json:"dry_run"`
	Jobs       []extractJobJSON `json:"jobs"`
	Residue    []string         `json:"residue,omitempty"`
	Ignored    map[string]int   `json:"ignored_by_extension,omitempty"`
	Committed  int              `json:"committed"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	NotStarted int              `json:"not_started"`
}

func extractJSONFrom(runID string, plan extractPlan, result *extract.Result, dryRun bool) extractJSON {
	payload := extractJSON{
		RunID:   runID,
		Input:   plan.input,
		Output:  plan.output,
		DryRun:  dryRun,
		Jobs:    make([]extractJobJSON, 0, len(plan.jobs)),
		Residue: plan.residue,
		Ignored: plan.scan.IgnoredByExt,
	}
	for _, job := range plan.jobs {
		entry := extractJobJSON{
			Archive: job.Group.PrimaryPath,
			Format:  string(job.Group.Format),
			Volumes: job.Group.Parts,
			Size:    job.Group.Size,
			Target:  job.Group.TargetDir,
			Status:  string(job.Status),
			Seconds: job.Duration().Seconds(),
		}
		if job.Err != nil {
			entry.Kind = services.Kind(job.Err)
			entry.Error = job.Err.Error()
		}
		payload.Jobs = append(payload.Jobs, entry)
	}
	if result != nil {
		payload.Committed = result.Committed
		payload.Failed = result.Failed
		payload.Skipped = result.Skipped
		payload.NotStarted = result.NotStarted
	} else {
		payload.Skipped = len(plan.jobs) - len(plan.pending)
	}
	return payload
}
