package logging

import (
	"sync"
	"testing"
)

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("a.zip", 50) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Forget("a.zip") // should not panic
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{5, false},
		{10, true},
		{15, false},
		{9, false},
		{55, true},
		{100, true},
		{100, false},
		{-1, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog("a.zip", step.percent); got != step.want {
			t.Fatalf("step %d: ShouldLog(%v) = %v, want %v", i, step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerKeysAreIndependent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog("a.zip", 20) {
		t.Fatal("expected first event for a.zip")
	}
	if !s.ShouldLog("b.zip", 20) {
		t.Fatal("expected first event for b.zip")
	}
	s.Forget("a.zip")
	if !s.ShouldLog("a.zip", 20) {
		t.Fatal("expected a.zip to emit again after Forget")
	}
}

func TestProgressSamplerConcurrentUse(t *testing.T) {
	s := NewProgressSampler(1)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for p := 0; p <= 100; p++ {
				s.ShouldLog(key, float64(p))
			}
		}(string(rune('a' + w)))
	}
	wg.Wait()
	if len(s.buckets) != 8 {
		t.Fatalf("expected 8 tracked keys, got %d", len(s.buckets))
	}
}
