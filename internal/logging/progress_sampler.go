package logging

import "sync"

// ProgressSampler suppresses repetitive engine progress logs. Each key (one
// per archive job) emits only when its percentage crosses a bucket boundary.
// Safe for use by concurrent workers.
type ProgressSampler struct {
	bucketSize float64

	mu      sync.Mutex
	buckets map[string]int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, buckets: make(map[string]int)}
}

// ShouldLog reports whether a progress event for key should be logged.
// Negative percentages mean "unknown" and never emit.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.buckets[key]
	if seen && bucket <= last {
		return false
	}
	s.buckets[key] = bucket
	return true
}

// Forget drops the state for key once its job is terminal.
func (s *ProgressSampler) Forget(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
}
