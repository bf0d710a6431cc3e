// Package sevenzip mediates access to the 7-Zip CLI used as the extraction
// engine.
//
// It normalizes command invocation (overwrite mode, empty password, closed
// stdin so encrypted archives fail instead of prompting), parses the
// per-archive progress percentages 7-Zip prints with -bsp1, and decides whether
// a run counts as a complete success. Multi-volume archives are handed over by
// their entry volume; 7-Zip locates sibling volumes itself.
//
// Prefer this package over ad-hoc exec.Command usage so progress reporting and
// success detection stay consistent.
package sevenzip
