package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// markerContents renders the commit marker body. The marker's presence is
// the resume signal; the body is informational.
func markerContents(job *Job, runID string, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "archive: %s\n", filepath.Base(job.Group.PrimaryPath))
	fmt.Fprintf(&b, "format: %s\n", job.Group.Format)
	fmt.Fprintf(&b, "volumes: %d\n", len(job.Group.Parts))
	if runID != "" {
		fmt.Fprintf(&b, "run: %s\n", runID)
	}
	fmt.Fprintf(&b, "completed: %s\n", now.UTC().Format(time.RFC3339))
	return []byte(b.String())
}
