package progress

import (
	"sync"
	"time"
)

// Kind identifies what an Event describes.
type Kind string

const (
	// KindJobStatus is a job lifecycle transition.
	KindJobStatus Kind = "job_status"
	// KindJobProgress is an engine percentage update for a running job.
	KindJobProgress Kind = "job_progress"
	// KindFlattenStep is one flatten operation reaching a terminal status.
	KindFlattenStep Kind = "flatten_step"
	// KindProjectDone closes a flatten project.
	KindProjectDone Kind = "project_done"
)

// Event is an immutable notification published by a worker.
type Event struct {
	Kind Kind
	Time time.Time

	// Job identifies an extraction job (its primary volume path).
	Job    string
	Name   string
	Target string
	// Status is the job or flatten status after the transition.
	Status  string
	Percent float64
	Message string

	Project    string
	Depth      int
	Collisions []string

	Err error
}

// Snapshot is a copy of the aggregate state.
type Snapshot struct {
	// Total is the number of jobs or projects the run expects.
	Total int
	// ByStatus counts jobs by their current status.
	ByStatus map[string]int
	// Levels counts committed flatten operations.
	Levels int
	// RolledBack counts flatten operations that were undone.
	RolledBack int
	// Projects counts finished flatten projects.
	Projects int
}

// Count returns the number of jobs currently in status.
func (s Snapshot) Count(status string) int {
	return s.ByStatus[status]
}

// Sink receives every event together with the state after it was applied.
// Sinks run while the aggregator holds its lock and must not publish.
type Sink interface {
	Handle(Event, Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event, Snapshot)

// Handle calls f.
func (f SinkFunc) Handle(ev Event, snap Snapshot) { f(ev, snap) }

// Aggregator is the single shared object between workers.
type Aggregator struct {
	mu         sync.Mutex
	total      int
	jobs       map[string]string
	byStatus   map[string]int
	levels     int
	rolledBack int
	projects   int
	sinks      []Sink
	now        func() time.Time
}

// New returns an aggregator expecting total units of work.
func New(total int, sinks ...Sink) *Aggregator {
	return &Aggregator{
		total:    total,
		jobs:     make(map[string]string),
		byStatus: make(map[string]int),
		sinks:    sinks,
		now:      time.Now,
	}
}

// AddSink registers another sink.
func (a *Aggregator) AddSink(s Sink) {
	if a == nil || s == nil {
		return
	}
	a.mu.Lock()
	a.sinks = append(a.sinks, s)
	a.mu.Unlock()
}

// SetTotal updates the expected number of units.
func (a *Aggregator) SetTotal(total int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.total = total
	a.mu.Unlock()
}

// Publish applies ev and forwards it to every sink. A nil aggregator drops
// events so callers never need to guard.
func (a *Aggregator) Publish(ev Event) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Time.IsZero() {
		ev.Time = a.now()
	}
	switch ev.Kind {
	case KindJobStatus:
		if prev, ok := a.jobs[ev.Job]; ok {
			a.byStatus[prev]--
			if a.byStatus[prev] <= 0 {
				delete(a.byStatus, prev)
			}
		}
		a.jobs[ev.Job] = ev.Status
		a.byStatus[ev.Status]++
	case KindFlattenStep:
		switch ev.Status {
		case "committed":
			a.levels++
		case "rolled_back":
			a.rolledBack++
		}
	case KindProjectDone:
		a.projects++
	}

	snap := a.snapshotLocked()
	for _, sink := range a.sinks {
		sink.Handle(ev, snap)
	}
}

// Snapshot returns a copy of the current aggregate state.
func (a *Aggregator) Snapshot() Snapshot {
	if a == nil {
		return Snapshot{ByStatus: map[string]int{}}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	counts := make(map[string]int, len(a.byStatus))
	for k, v := range a.byStatus {
		counts[k] = v
	}
	return Snapshot{
		Total:      a.total,
		ByStatus:   counts,
		Levels:     a.levels,
		RolledBack: a.rolledBack,
		Projects:   a.projects,
	}
}
