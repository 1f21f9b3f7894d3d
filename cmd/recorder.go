package cmd

import (
	"sort"
	"sync"

	"github.com/inference-sim/netcal/calib"
)

// Recorder captures every trial report of a run (goroutine-safe).
type Recorder struct {
	mu      sync.Mutex
	reports []calib.TrialReport
}

// Record implements calib.ReportSink.
func (r *Recorder) Record(report calib.TrialReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

// Reports returns all recorded reports ordered by completion time.
func (r *Recorder) Reports() []calib.TrialReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]calib.TrialReport, len(r.reports))
	copy(result, r.reports)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Finished.Before(result[j].Finished)
	})
	return result
}

// Len returns the number of recorded trials.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}
