// Package main hosts the zipp CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration, logging, the run lock,
// and the run ledger around the internal extract and flatten engines, then
// renders plans and summaries. Keep this package lean: new behavior belongs
// in the internal packages first, surfaced here through commands or flags.
package main
