package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zipp/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the extraction engine and zipp's own directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var rows [][]string
			failures := 0
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				state := "passed"
				detail := dep.Command
				if !dep.Available {
					state = "missing"
					detail = dep.Detail
					if !dep.Optional {
						failures++
					}
				}
				rows = append(rows, []string{dep.Name, statusLabel(state, colorize), yesNo(!dep.Optional), detail})
			}
			checks := []preflight.Result{preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir)}
			if cfg.History.Enabled {
				checks = append(checks, preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
			}
			for _, check := range checks {
				state := "passed"
				if !check.Passed {
					state = "failed"
					failures++
				}
				rows = append(rows, []string{check.Name, statusLabel(state, colorize), "yes", check.Detail})
			}

			fmt.Fprintln(out, renderTable("", []string{"Check", "Status", "Required", "Detail"}, rows, nil))
			fmt.Fprintf(out, "Config: %s\n", configSource(ctx))
			if failures > 0 {
				return fmt.Errorf("%d required check(s) failed", failures)
			}
			fmt.Fprintln(out, "All required checks passed.")
			return nil
		},
	}
}
