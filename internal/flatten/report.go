package flatten

import (
	"strings"

	"zipp/internal/snapshot"
)

// ProjectResult is the outcome for one project directory.
type ProjectResult struct {
	Name string
	Path string
	// Levels counts committed operations.
	Levels int
	// Segments is the dug path: the project name followed by every collapsed
	// directory name.
	Segments   []string
	Operations []Operation
	Manifest   snapshot.Result
	// Collisions holds the predicted blocking names in a dry run.
	Collisions []string
	Err        error
}

// DugPath joins the segments with "/".
func (p ProjectResult) DugPath() string {
	return strings.Join(p.Segments, "/")
}

// RolledBack returns the project's undone operation, if any.
func (p ProjectResult) RolledBack() (Operation, bool) {
	for _, op := range p.Operations {
		if op.Status == StatusRolledBack {
			return op, true
		}
	}
	return Operation{}, false
}

// Report summarizes a flatten run.
type Report struct {
	Root     string
	DryRun   bool
	Projects []ProjectResult
}

// Scanned returns the number of projects examined.
func (r Report) Scanned() int { return len(r.Projects) }

// Levels returns the total committed operations.
func (r Report) Levels() int {
	n := 0
	for _, p := range r.Projects {
		n += p.Levels
	}
	return n
}

// Affected returns projects with at least one committed level.
func (r Report) Affected() []ProjectResult {
	var out []ProjectResult
	for _, p := range r.Projects {
		if p.Levels > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Untouched returns the names of projects left as they were.
func (r Report) Untouched() []string {
	var out []string
	for _, p := range r.Projects {
		if p.Levels == 0 {
			out = append(out, p.Name)
		}
	}
	return out
}

// RolledBack returns every operation that was undone.
func (r Report) RolledBack() []Operation {
	var out []Operation
	for _, p := range r.Projects {
		if op, ok := p.RolledBack(); ok {
			out = append(out, op)
		}
	}
	return out
}

// Errors returns projects that stopped on an error other than a rollback.
func (r Report) Errors() []ProjectResult {
	var out []ProjectResult
	for _, p := range r.Projects {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// OK reports whether no branch rolled back and no project errored.
func (r Report) OK() bool {
	return len(r.RolledBack()) == 0 && len(r.Errors()) == 0
}
