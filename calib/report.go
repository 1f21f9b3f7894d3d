package calib

import (
	"encoding/json"
	"time"
)

// TrialReport describes one evaluated calibration.
type TrialReport struct {
	ID          string        `json:"id"`
	Calibration Params        `json:"calibration"`
	Result      TrialResult   `json:"result"`
	Loss        float64       `json:"loss"`
	Duration    time.Duration `json:"-"`
	Seconds     float64       `json:"time"`
	Finished    time.Time     `json:"finished"`
}

// String renders the report as a single JSON line for logs.
func (r TrialReport) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return r.ID
	}
	return string(data)
}

// ReportSink receives a report for every completed trial. Implementations
// must be safe for concurrent use.
type ReportSink interface {
	Record(report TrialReport) error
}
