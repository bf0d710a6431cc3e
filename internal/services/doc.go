// Package services defines shared utilities consumed by the extraction and
// flatten pipelines and the external engine integration.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, archive groups,
//     and project names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (engine, filesystem, collision, ambiguity) for summaries and the ledger.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
