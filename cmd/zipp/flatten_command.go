package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"zipp/internal/flatten"
	"zipp/internal/history"
	"zipp/internal/logging"
	"zipp/internal/preflight"
	"zipp/internal/progress"
	"zipp/internal/runlock"
	"zipp/internal/services"
	"zipp/internal/snapshot"
)

type flattenOptions struct {
	workers int
	dryRun  bool
	json    bool
}

func newFlattenCommand(ctx *commandContext) *cobra.Command {
	var opts flattenOptions
	cmd := &cobra.Command{
		Use:   "flatten <target-dir>",
		Short: "Snapshot each project and collapse single-directory nesting",
		Long: `Treat every directory directly under target-dir as a project. Each project
first gets a manifest of its original structure ("<project>.txt"), then any
chain of directories holding a single subdirectory is collapsed into the
project root. A level whose entries collide with existing names is rolled
back and the project is left at that level.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(cmd, ctx, args[0], opts)
		},
	}
	cmd.Flags().IntVarP(&opts.workers, "threads", "t", 0, "Projects processed concurrently (default: flatten.workers)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be collapsed without changing anything")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit the report as JSON")
	return cmd
}

func runFlatten(cmd *cobra.Command, ctx *commandContext, targetArg string, opts flattenOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	root, err := filepath.Abs(targetArg)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}
	workers := cfg.Flatten.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	check := preflight.CheckDirectoryAccess("Target directory", root)
	if opts.dryRun {
		check = preflight.CheckDirectoryReadable("Target directory", root)
	}
	if !check.Passed {
		return preflightError([]preflight.Result{check})
	}

	if !opts.dryRun {
		lock, err := runlock.Acquire(cfg.Paths.StateDir, root)
		if err != nil {
			if errors.Is(err, runlock.ErrLocked) {
				return fmt.Errorf("another zipp run is using %s", root)
			}
			return err
		}
		defer lock.Release()
	}

	runID := uuid.NewString()
	runCtx := logging.WithStage(logging.WithRun(cmd.Context(), runID), "flatten")
	runLogger := logging.WithContext(runCtx, logger)

	var ledger *runLedger
	if opts.dryRun {
		ledger = startLedger(runCtx, nil, history.Run{}, runLogger)
	} else {
		ledger = startLedger(runCtx, ctx.openHistory(runLogger), history.Run{
			ID:        runID,
			Command:   "flatten",
			Root:      root,
			StartedAt: time.Now(),
		}, runLogger)
	}

	var bar *barSink
	candidates := []progress.Sink{progress.NewLogSink(runLogger), ledger.sink()}
	if !opts.json && isTerminal(cmd.ErrOrStderr()) {
		projects, _ := flatten.Projects(root)
		bar = newBarSink(cmd.ErrOrStderr(), len(projects), "flattening")
		candidates = append(candidates, bar)
	}
	agg := progress.New(0, sinks(candidates...)...)

	recorder := snapshot.NewRecorder(cfg.Flatten.ManifestFormat, runLogger)
	engine := flatten.NewEngine(flatten.Options{
		Workers:   workers,
		MaxDepth:  cfg.Flatten.MaxDepth,
		JunkNames: append(append([]string(nil), cfg.Flatten.JunkNames...), cfg.Extract.MarkerName),
		DryRun:    opts.dryRun,
	}, recorder, agg, runLogger)

	report, err := engine.Run(runCtx, root)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		ledger.finish(runCtx, history.RunFailed, history.Totals{})
		return err
	}

	status := history.RunOK
	switch {
	case cmd.Context().Err() != nil:
		status = history.RunInterrupted
	case !report.OK():
		status = history.RunFailed
	}
	ledger.finish(runCtx, status, history.Totals{
		Levels:     report.Levels(),
		RolledBack: len(report.RolledBack()),
	})

	if opts.json {
		if err := writeJSON(cmd, flattenJSONFrom(runID, report)); err != nil {
			return err
		}
	} else {
		renderFlattenReport(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
	}
	if !report.OK() {
		return &incompleteRunError{summary: fmt.Sprintf("%d rolled back, %d errors", len(report.RolledBack()), len(report.Errors()))}
	}
	return nil
}

func renderFlattenReport(w io.Writer, report flatten.Report, colorize bool) {
	verb := "flattened"
	if report.DryRun {
		verb = "would flatten"
	}
	if affected := report.Affected(); len(affected) > 0 {
		rows := make([][]string, 0, len(affected))
		for _, p := range affected {
			rows = append(rows, []string{p.Name, strconv.Itoa(p.Levels), p.DugPath()})
		}
		fmt.Fprintln(w, renderTable("Projects "+verb,
			[]string{"Project", "Levels", "Dug path"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft},
		))
	}

	if rolled := report.RolledBack(); len(rolled) > 0 {
		rows := make([][]string, 0, len(rolled))
		for _, op := range rolled {
			rows = append(rows, []string{op.SourceDir, strings.Join(op.Collisions, ", "), errorText(op.Err)})
		}
		fmt.Fprintln(w, renderTable(statusLabel("rolled_back", colorize),
			[]string{"Branch", "Collisions", "Error"}, rows, nil))
	}
	if report.DryRun {
		for _, p := range report.Projects {
			if len(p.Collisions) > 0 {
				fmt.Fprintf(w, "%s would stop at %s: %s\n", p.Name, p.DugPath(), strings.Join(p.Collisions, ", "))
			}
		}
	}
	for _, p := range report.Errors() {
		if _, ok := p.RolledBack(); ok {
			continue
		}
		fmt.Fprintf(w, "%s %s: %v\n", statusLabel("failed", colorize), p.Path, p.Err)
	}

	if untouched := report.Untouched(); len(untouched) > 0 {
		fmt.Fprintf(w, "Untouched: %s\n", strings.Join(untouched, ", "))
	}

	fmt.Fprintln(w, keyValueTable("Totals", [][2]string{
		{"Projects scanned", strconv.Itoa(report.Scanned())},
		{"Levels " + verb, strconv.Itoa(report.Levels())},
		{"Projects affected", strconv.Itoa(len(report.Affected()))},
		{"Projects untouched", strconv.Itoa(len(report.Untouched()))},
		{"Branches rolled back", strconv.Itoa(len(report.RolledBack()))},
	}))
}

type flattenProjectJSON struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Levels     int      `json:"levels"`
	DugPath    string   `json:"dug_path"`
	Manifest   string   `json:"manifest,omitempty"`
	RolledBack string   `json:"rolled_back,omitempty"`
	Collisions []string `json:"collisions,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type flattenJSON struct {
	RunID      string               `json:"run_id"`
	Root       string               `json:"root"`
	DryRun     bool                 `json:"dry_run"`
	Projects   []flattenProjectJSON `json:"projects"`
	Levels     int                  `json:"levels"`
	Affected   int                  `json:"affected"`
	Untouched  int                  `json:"untouched"`
	RolledBack int                  `json:"rolled_back"`
}

func flattenJSONFrom(runID string, report flatten.Report) flattenJSON {
	payload := flattenJSON{
		RunID:      runID,
		Root:       report.Root,
		DryRun:     report.DryRun,
		Projects:   make([]flattenProjectJSON, 0, len(report.Projects)),
		Levels:     report.Levels(),
		Affected:   len(report.Affected()),
		Untouched:  len(report.Untouched()),
		RolledBack: len(report.RolledBack()),
	}
	for _, p := range report.Projects {
		entry := flattenProjectJSON{
			Name:       p.Name,
			Path:       p.Path,
			Levels:     p.Levels,
			DugPath:    p.DugPath(),
			Manifest:   p.Manifest.Path,
			Collisions: p.Collisions,
		}
		if op, ok := p.RolledBack(); ok {
			entry.RolledBack = op.SourceDir
			entry.Collisions = op.Collisions
		}
		if p.Err != nil {
			entry.ErrorKind = services.Kind(p.Err)
			entry.Error = p.Err.Error()
		}
		payload.Projects = append(payload.Projects, entry)
	}
	return payload
}
