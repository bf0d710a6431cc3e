package extract

import (
	"fmt"
	"os"

	"zipp/internal/fileutil"
	"zipp/internal/services"
)

// Residue lists the paths the conflict resolver would delete before job runs:
// any entry at the staging path, and the target when it exists without a
// commit marker. A committed target is never listed.
func Residue(job *Job, layout Layout) []string {
	var paths []string
	if ok, _ := fileutil.Exists(job.TempDir); ok {
		paths = append(paths, job.TempDir)
	}
	if ok, _ := fileutil.Exists(job.Group.TargetDir); ok && !layout.Committed(job.Group.TargetDir) {
		paths = append(paths, job.Group.TargetDir)
	}
	return paths
}

// ClearResidue deletes the paths reported by Residue. The deletion is
// irreversible; callers surface the list to the user beforehand.
func ClearResidue(job *Job, layout Layout) ([]string, error) {
	paths := Residue(job, layout)
	for _, path := range paths {
		if path == job.Group.TargetDir && layout.Committed(path) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, services.Wrap(services.ErrFilesystem, "extract", "clear residue", fmt.Sprintf("remove %s", path), err)
		}
	}
	return paths, nil
}
