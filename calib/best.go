package calib

import "sync"

// BestRecord is the lowest trial loss seen so far and the trial's results.
type BestRecord struct {
	Loss   float64     `json:"loss"`
	Result TrialResult `json:"result"`
}

// BestTracker records the best trial across concurrently running evaluations
// (goroutine-safe).
type BestTracker struct {
	mu   sync.Mutex
	best *BestRecord
}

// NewBestTracker returns an empty tracker.
func NewBestTracker() *BestTracker {
	return &BestTracker{}
}

// Observe replaces the record when none exists or loss is strictly lower.
// It reports whether the record was replaced.
func (t *BestTracker) Observe(loss float64, result TrialResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.best != nil && !(loss < t.best.Loss) {
		return false
	}
	t.best = &BestRecord{Loss: loss, Result: append(TrialResult(nil), result...)}
	return true
}

// Best returns a copy of the current record, or false if nothing was observed.
func (t *BestTracker) Best() (BestRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.best == nil {
		return BestRecord{}, false
	}
	return BestRecord{Loss: t.best.Loss, Result: append(TrialResult(nil), t.best.Result...)}, true
}
