package preflight

import (
	"zipp/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Target is a directory a run depends on.
type Target struct {
	Name string
	Path string
	// Write requires write access in addition to read access.
	Write bool
}

// RunAll checks the engine (when requireEngine is set), the state directory
// when history is enabled, and every target.
func RunAll(cfg *config.Config, requireEngine bool, targets ...Target) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if requireEngine {
		results = append(results, CheckEngine(cfg))
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	for _, target := range targets {
		if target.Path == "" {
			continue
		}
		if target.Write {
			results = append(results, CheckDirectoryAccess(target.Name, target.Path))
		} else {
			results = append(results, CheckDirectoryReadable(target.Name, target.Path))
		}
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
