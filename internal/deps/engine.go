package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"zipp/internal/services"
)

// Requirement names an external program zipp can call.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of checking one Requirement. Command holds the
// resolved path when Available.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// ResolveEngine walks candidates in order and returns the first one that is
// runnable.
func ResolveEngine(candidates []string) (string, error) {
	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		tried = append(tried, candidate)
		if resolved, ok := locate(candidate); ok {
			return resolved, nil
		}
	}
	if len(tried) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "deps", "resolve engine", "no extraction engine configured", nil)
	}
	return "", services.Wrap(services.ErrNotFound, "deps", "resolve engine",
		fmt.Sprintf("no extraction engine found (tried %s); install 7-Zip or set engine.binary", strings.Join(tried, ", ")), nil)
}

// CheckEngine reports engine availability for doctor output.
func CheckEngine(candidates []string) Status {
	status := Status{Requirement: Requirement{
		Name:        "7-Zip",
		Description: "Required for archive extraction",
	}}
	resolved, err := ResolveEngine(candidates)
	if err != nil {
		status.Command = strings.Join(candidates, ", ")
		status.Detail = err.Error()
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

// CheckBinaries resolves each requirement through the same lookup the engine uses.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		switch resolved, ok := locate(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case !ok:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// locate checks paths containing a separator on disk and resolves bare names
// through PATH.
func locate(command string) (string, bool) {
	if command == "" {
		return "", false
	}
	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil || !isExecutable(info) {
			return "", false
		}
		return command, true
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func isExecutable(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
