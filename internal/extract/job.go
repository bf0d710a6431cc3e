package extract

import (
	"os"
	"path/filepath"
	"time"

	"zipp/internal/archive"
)

// Status is an extraction job's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusVerified   Status = "verified"
	StatusCommitted  Status = "committed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCommitted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Layout names the staging suffix and marker file shared by every job.
type Layout struct {
	TempSuffix string
	MarkerName string
}

// TempDir returns the staging directory for target.
func (l Layout) TempDir(target string) string {
	return target + l.TempSuffix
}

// Committed reports whether target holds a commit marker.
func (l Layout) Committed(target string) bool {
	info, err := os.Stat(filepath.Join(target, l.MarkerName))
	return err == nil && !info.IsDir()
}

// Job is one archive group's extraction. Only the worker running the job
// mutates it.
type Job struct {
	Group      archive.ArchiveGroup
	TempDir    string
	MarkerPath string
	Status     Status
	Err        error
	Started    time.Time
	Finished   time.Time
}

// NewJob builds a pending job for group.
func NewJob(group archive.ArchiveGroup, layout Layout) *Job {
	temp := layout.TempDir(group.TargetDir)
	return &Job{
		Group:      group,
		TempDir:    temp,
		MarkerPath: filepath.Join(temp, layout.MarkerName),
		Status:     StatusPending,
	}
}

// NewJobs builds one job per group. Groups whose target is already committed
// start out Skipped.
func NewJobs(groups []archive.ArchiveGroup, layout Layout) []*Job {
	jobs := make([]*Job, 0, len(groups))
	for _, g := range groups {
		job := NewJob(g, layout)
		if layout.Committed(g.TargetDir) {
			job.Status = StatusSkipped
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Duration returns how long the job ran, or zero if it never started.
func (j *Job) Duration() time.Duration {
	if j.Started.IsZero() || j.Finished.IsZero() {
		return 0
	}
	return j.Finished.Sub(j.Started)
}
