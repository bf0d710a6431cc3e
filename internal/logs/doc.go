// Package logs reads zipp's log file for the `zipp logs` command.
//
// It returns the last N lines with bounded memory, optionally keeping only
// lines that contain a filter string such as a run id, and can follow the
// file as new lines are appended until the caller's context is cancelled.
package logs
