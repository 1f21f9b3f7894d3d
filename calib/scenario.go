package calib

import (
	"fmt"
	"strconv"
	"strings"
)

// Scenario is one ground-truth measurement unit: a benchmark run on a given
// node and process count over an ascending list of message sizes.
type Scenario struct {
	Benchmark string  `json:"benchmark"`
	NodeCount int     `json:"node_count"`
	Processes int     `json:"processes"`
	ByteSizes []int64 `json:"byte_sizes"`
}

func (s Scenario) String() string {
	sizes := make([]string, len(s.ByteSizes))
	for i, b := range s.ByteSizes {
		sizes[i] = strconv.FormatInt(b, 10)
	}
	return fmt.Sprintf("%s(nodes=%d, procs=%d, bytes=[%s])", s.Benchmark, s.NodeCount, s.Processes, strings.Join(sizes, ","))
}

// ScenarioObservations holds one sample set per byte size of a scenario,
// in the scenario's byte-size order.
type ScenarioObservations [][]float64

// TrialResult is the simulated throughput per (scenario, byte size) pair of
// one trial, in scenario iteration order.
type TrialResult []float64

// Params maps calibration parameter names to their textual values.
type Params map[string]string

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
