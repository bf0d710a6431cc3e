package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"zipp/internal/progress"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shouldColorize(w io.Writer) bool {
	return isTerminal(w)
}

// statusLabel colors a job, flatten, or run status for terminal output.
func statusLabel(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "committed", "ok", "passed":
		return text.FgGreen.Sprint(status)
	case "failed", "rolled_back", "missing":
		return text.FgRed.Sprint(status)
	case "skipped", "interrupted", "pending":
		return text.FgYellow.Sprint(status)
	default:
		return status
	}
}

func sizeLabel(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

func durationLabel(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

// confirm asks question on out and reads a y/n answer from in. Only "y" and
// "yes" (any case) count as consent.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// needsConfirmation reports whether a destructive run should prompt. Runs
// with --yes or without an interactive stdin proceed without asking.
func needsConfirmation(cmd *cobra.Command, assumeYes bool) bool {
	if assumeYes {
		return false
	}
	return isTerminal(cmd.InOrStdin())
}

// barSink drives a terminal progress bar from aggregator events. It advances
// once per job reaching a terminal status, or once per finished project.
type barSink struct {
	bar     *progressbar.ProgressBar
	counted map[string]struct{}
}

func newBarSink(w io.Writer, total int, description string) *barSink {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
	return &barSink{bar: bar, counted: make(map[string]struct{})}
}

func (s *barSink) Handle(ev progress.Event, _ progress.Snapshot) {
	switch ev.Kind {
	case progress.KindJobStatus:
		switch ev.Status {
		case "committed", "failed", "skipped":
		default:
			s.bar.Describe(ev.Name)
			return
		}
		if _, ok := s.counted[ev.Job]; ok {
			return
		}
		s.counted[ev.Job] = struct{}{}
		_ = s.bar.Add(1)
	case progress.KindProjectDone:
		s.bar.Describe(ev.Project)
		_ = s.bar.Add(1)
	}
}

func (s *barSink) Finish() {
	_ = s.bar.Finish()
}
