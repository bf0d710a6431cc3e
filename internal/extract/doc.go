// Package extract runs archive groups through a staged, crash-safe
// extraction.
//
// Each job extracts into <target><suffix>, writes and fsyncs a completion
// marker once the engine reports full success, then commits with a single
// rename onto the target. A target that already carries the marker is a
// finished job and is skipped without invoking the engine, which makes
// reruns idempotent. Failed jobs leave their staging directory unmarked for
// inspection.
//
// Pool bounds concurrency; jobs share nothing but the progress aggregator.
package extract
