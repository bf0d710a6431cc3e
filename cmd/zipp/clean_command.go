package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zipp/internal/runlock"
	"zipp/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var yes bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean <dir>",
		Short: "Remove leftover staging buffers",
		Long: `List staging buffers left under dir by interrupted or failed extractions
and remove them. Buffers younger than --older-than are kept. A buffer
reported as "marked" finished extraction but was never committed; rerunning
extract re-extracts it either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve dir: %w", err)
			}

			lock, err := runlock.Acquire(cfg.Paths.StateDir, root)
			if err != nil {
				if errors.Is(err, runlock.ErrLocked) {
					return fmt.Errorf("another zipp run is using %s", root)
				}
				return err
			}
			defer lock.Release()

			dirs, err := staging.List(root, cfg.Extract.TempSuffix, cfg.Extract.MarkerName)
			if err != nil {
				return fmt.Errorf("list staging buffers: %w", err)
			}
			cutoff := time.Now().Add(-olderThan)
			var stale []staging.DirInfo
			for _, d := range dirs {
				if olderThan <= 0 || d.ModTime.Before(cutoff) {
					stale = append(stale, d)
				}
			}

			out := cmd.OutOrStdout()
			if len(stale) == 0 {
				fmt.Fprintln(out, "No staging buffers to remove.")
				return nil
			}
			rows := make([][]string, 0, len(stale))
			var total int64
			for _, d := range stale {
				rows = append(rows, []string{relativeTo("", root, d.Path), humanize.Time(d.ModTime), sizeLabel(d.Size), yesNo(d.Marked)})
				total += d.Size
			}
			fmt.Fprintln(out, renderTable("Staging buffers",
				[]string{"Path", "Modified", "Size", "Marked"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			if dryRun {
				fmt.Fprintf(out, "Would remove %d buffer(s), %s.\n", len(stale), sizeLabel(total))
				return nil
			}
			if needsConfirmation(cmd, yes) && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Remove %d buffer(s)?", len(stale))) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}

			result := staging.CleanStale(cmd.Context(), root, cfg.Extract.TempSuffix, olderThan, logger)
			fmt.Fprintf(out, "Removed %d buffer(s).\n", len(result.Removed))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "could not remove %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return &incompleteRunError{summary: fmt.Sprintf("%d buffer(s) could not be removed", len(result.Errors))}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove buffers last modified before this age (e.g. 24h)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Proceed without confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List buffers without removing them")
	return cmd
}
