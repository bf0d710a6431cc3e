// Package history keeps a SQLite ledger of zipp runs.
//
// Each extract or flatten invocation records a run row, one row per archive
// job (upserted as the job moves through its states) and one row per flatten
// operation. The ledger is informational: resume decisions always come from
// the commit markers on disk, never from this database.
package history
