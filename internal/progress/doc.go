// Package progress aggregates job and flatten events from concurrent
// workers. Workers publish immutable Event values; the Aggregator applies them
// to its counters under one mutex and fans each event out to registered sinks
// in publication order. Sinks include the CLI progress bar, the logger, and
// the run ledger.
package progress
