package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zipp/internal/history"
	"zipp/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedgerForRead(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg, _ := ctx.ensureConfig()
			if limit <= 0 {
				limit = cfg.History.Limit
			}
			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				command := run.Command
				if run.DryRun {
					command += " (dry run)"
				}
				rows = append(rows, []string{
					shortID(run.ID),
					command,
					humanize.Time(run.StartedAt),
					statusLabel(run.Status, colorize),
					run.Root,
					runCounts(run),
				})
			}
			fmt.Fprintln(out, renderTable("",
				[]string{"Run", "Command", "Started", "Status", "Root", "Result"},
				rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of runs to list (default: history.limit)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the jobs and flatten steps of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedgerForRead(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runID, err := store.ResolveRunID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			jobs, err := store.RunJobs(cmd.Context(), runID)
			if err != nil {
				return err
			}
			steps, err := store.RunSteps(cmd.Context(), runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Run %s\n", runID)
			if len(jobs) > 0 {
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{job.Archive, statusLabel(job.Status, colorize), job.ErrorKind, job.Error})
				}
				fmt.Fprintln(out, renderTable("Jobs", []string{"Archive", "Status", "Kind", "Error"}, rows, nil))
			}
			if len(steps) > 0 {
				rows := make([][]string, 0, len(steps))
				for _, step := range steps {
					rows = append(rows, []string{
						step.Project,
						strconv.Itoa(step.Depth),
						statusLabel(step.Status, colorize),
						step.Source,
						strings.Join(step.Collisions, ", "),
					})
				}
				fmt.Fprintln(out, renderTable("Flatten steps",
					[]string{"Project", "Depth", "Status", "Source", "Collisions"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
			}
			if len(jobs) == 0 && len(steps) == 0 {
				fmt.Fprintln(out, "No jobs or flatten steps recorded for this run.")
			}
			return nil
		},
	}
}

func openLedgerForRead(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "run ledger disabled (history.enabled = false)", nil)
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		if errors.Is(err, history.ErrSchemaMismatch) {
			return nil, fmt.Errorf("%w; remove %s to start a new ledger", err, cfg.HistoryPath())
		}
		return nil, err
	}
	return store, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runCounts(run history.Run) string {
	t := run.Totals
	if run.Command == "flatten" {
		out := fmt.Sprintf("%d levels", t.Levels)
		if t.RolledBack > 0 {
			out += fmt.Sprintf(", %d rolled back", t.RolledBack)
		}
		return out
	}
	out := fmt.Sprintf("%d committed, %d skipped", t.Committed, t.Skipped)
	if t.Failed > 0 {
		out += fmt.Sprintf(", %d failed", t.Failed)
	}
	return out
}
