// Package preflight provides readiness checks for the extraction engine and
// the directories a run reads and writes.
//
// These checks run in two contexts:
//   - extract and flatten call RunAll before touching the filesystem; a failed
//     check aborts the run before any destructive step.
//   - the CLI "zipp doctor" command renders every result as a table.
package preflight
