package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(os.Stderr, err))
}

// exitCode maps a command error to the process status. Incomplete runs have
// already printed their summary, so only the code is returned for them.
func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var incomplete *incompleteRunError
	if errors.As(err, &incomplete) {
		return exitIncomplete
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return exitFatal
}

const (
	exitFatal      = 1
	exitIncomplete = 2
)

// incompleteRunError reports a run that finished with failed jobs, rolled
// back flatten branches, or jobs that never started.
type incompleteRunError struct {
	summary string
}

func (e *incompleteRunError) Error() string {
	return e.summary
}
