package calib

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// validationPattern selects the clustered (stencil) benchmarks held out for validation.
const validationPattern = "Stencil"

// Record is one row of empirical benchmark data.
type Record struct {
	BenchmarkParent string
	Benchmark       string
	NodeCount       int
	Processes       int
	Bytes           int64
	Throughput      float64 // MB/s
	Remark          string  // non-empty excludes the row
}

// Filter narrows the records used to build a GroundTruth.
// Zero-valued fields admit everything.
type Filter struct {
	BenchmarkParent string   // exact match; "" or "all" admits every parent
	Benchmarks      []string // name prefixes
	ByteSizes       []int64
	NodeCounts      []int
	// Validation replaces prefix matching with a substring match on "Stencil".
	Validation bool
}

// GroundTruth is the ordered list of scenarios and their aligned observations.
type GroundTruth struct {
	Scenarios    []Scenario
	Observations []ScenarioObservations
}

type scenarioKey struct {
	benchmark string
	nodeCount int
	processes int
}

func (k scenarioKey) less(o scenarioKey) bool {
	if k.benchmark != o.benchmark {
		return k.benchmark < o.benchmark
	}
	if k.nodeCount != o.nodeCount {
		return k.nodeCount < o.nodeCount
	}
	return k.processes < o.processes
}

// BuildGroundTruth filters records and groups them into scenarios.
// Excluded rows (non-empty remark) are dropped before any grouping. Every
// throughput sample is kept so loss denominators can account for noise.
func BuildGroundTruth(records []Record, filter Filter) (*GroundTruth, error) {
	samples := make(map[scenarioKey]map[int64][]float64)
	excluded := 0
	for _, r := range records {
		if strings.TrimSpace(r.Remark) != "" {
			excluded++
			continue
		}
		if !filter.admits(r) {
			continue
		}
		key := scenarioKey{r.Benchmark, r.NodeCount, r.Processes}
		bySize, ok := samples[key]
		if !ok {
			bySize = make(map[int64][]float64)
			samples[key] = bySize
		}
		bySize[r.Bytes] = append(bySize[r.Bytes], r.Throughput)
	}
	if len(samples) == 0 {
		return nil, &GroundTruthError{Reason: fmt.Sprintf("no records left after filtering %d rows (%d excluded by remark)", len(records), excluded)}
	}

	keys := make([]scenarioKey, 0, len(samples))
	for k := range samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	gt := &GroundTruth{
		Scenarios:    make([]Scenario, 0, len(keys)),
		Observations: make([]ScenarioObservations, 0, len(keys)),
	}
	for _, k := range keys {
		bySize := samples[k]
		sizes := make([]int64, 0, len(bySize))
		for b := range bySize {
			sizes = append(sizes, b)
		}
		slices.Sort(sizes)

		obs := make(ScenarioObservations, len(sizes))
		for i, b := range sizes {
			obs[i] = bySize[b]
		}
		gt.Scenarios = append(gt.Scenarios, Scenario{
			Benchmark: k.benchmark,
			NodeCount: k.nodeCount,
			Processes: k.processes,
			ByteSizes: sizes,
		})
		gt.Observations = append(gt.Observations, obs)
	}
	logrus.Debugf("ground truth: %d scenarios, %d points, %d rows excluded by remark", len(gt.Scenarios), gt.Points(), excluded)
	return gt, nil
}

func (f Filter) admits(r Record) bool {
	if f.BenchmarkParent != "" && f.BenchmarkParent != "all" && r.BenchmarkParent != f.BenchmarkParent {
		return false
	}
	if f.Validation {
		if !strings.Contains(r.Benchmark, validationPattern) {
			return false
		}
	} else if len(f.Benchmarks) > 0 && !hasAnyPrefix(r.Benchmark, f.Benchmarks) {
		return false
	}
	if len(f.ByteSizes) > 0 && !slices.Contains(f.ByteSizes, r.Bytes) {
		return false
	}
	if len(f.NodeCounts) > 0 && !slices.Contains(f.NodeCounts, r.NodeCount) {
		return false
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Points returns the number of (scenario, byte size) pairs.
func (g *GroundTruth) Points() int {
	n := 0
	for _, sc := range g.Scenarios {
		n += len(sc.ByteSizes)
	}
	return n
}

// Flatten returns the sample sets in (scenario, byte size) order, so that the
// k-th entry belongs to the k-th point of a TrialResult.
func (g *GroundTruth) Flatten() [][]float64 {
	out := make([][]float64, 0, g.Points())
	for _, obs := range g.Observations {
		out = append(out, obs...)
	}
	return out
}

// Means returns the empirical mean of every point in Flatten order.
func (g *GroundTruth) Means() []float64 {
	flat := g.Flatten()
	out := make([]float64, len(flat))
	for i, s := range flat {
		out[i] = sampleMean(s)
	}
	return out
}

// Validate checks that every scenario has one non-empty sample set per byte size.
func (g *GroundTruth) Validate() error {
	if len(g.Scenarios) != len(g.Observations) {
		return &GroundTruthError{Reason: fmt.Sprintf("%d scenarios but %d observation groups", len(g.Scenarios), len(g.Observations))}
	}
	for i, sc := range g.Scenarios {
		if len(sc.ByteSizes) != len(g.Observations[i]) {
			return &GroundTruthError{Reason: fmt.Sprintf("scenario %s has %d byte sizes but %d sample sets", sc, len(sc.ByteSizes), len(g.Observations[i]))}
		}
		for j, s := range g.Observations[i] {
			if len(s) == 0 {
				return &GroundTruthError{Reason: fmt.Sprintf("scenario %s has no samples for %d bytes", sc, sc.ByteSizes[j])}
			}
		}
	}
	return nil
}
