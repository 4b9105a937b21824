package logging

import "sync"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when an upload crosses a percentage bucket. State is tracked per upload id.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize int
	last       map[string]int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 25%).
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether a progress event should be logged. Negative
// percent means the total is unknown; only the first such event is logged.
func (s *ProgressSampler) ShouldLog(id string, percent int) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := -1
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket = percent / s.bucketSize
	}
	last, seen := s.last[id]
	if seen && bucket <= last {
		return false
	}
	s.last[id] = bucket
	return true
}

// Forget drops the state for id once its upload reached a terminal event.
func (s *ProgressSampler) Forget(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, id)
	s.mu.Unlock()
}
