package calib

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// DefaultMinRepetitions is the repetition floor before a point may converge.
const DefaultMinRepetitions = 10

// ResamplePolicy decides whether a point needs more simulated repetitions.
type ResamplePolicy struct {
	MinRepetitions int
	MaxRepetitions int
}

// NeedMore reports whether another repetition is required after count
// repetitions with the given relative standard error. A negative threshold
// always asks for more until MaxRepetitions.
func (p ResamplePolicy) NeedMore(count int, relStdErr, threshold float64) bool {
	return count < p.MaxRepetitions &&
		(count < p.MinRepetitions || threshold < 0 || count < 2 || relStdErr >= threshold)
}

// runningStats accumulates the sums needed for the relative standard error.
type runningStats struct {
	count   int
	sum     float64
	sumPow2 float64
}

func (s *runningStats) add(v float64) {
	s.count++
	s.sum += v
	s.sumPow2 += v * v
}

func (s *runningStats) mean() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

// relStdErr is the population standard deviation over the mean; +Inf when
// the mean is zero so a zero-throughput point keeps sampling.
func (s *runningStats) relStdErr() float64 {
	m := s.mean()
	if m == 0 {
		return math.Inf(1)
	}
	variance := s.sumPow2/float64(s.count) - m*m
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance) / m
}

// Resampler repeats single-iteration runs of a scenario until every byte
// size satisfies its policy, and returns the per-size means.
type Resampler struct {
	Runner ScenarioRunner
	Policy ResamplePolicy
}

// RunScenario implements ScenarioRunner. iterations caps the repetitions when
// the policy sets no maximum.
func (r *Resampler) RunScenario(a *Artifact, sc Scenario, iterations int, thresholds []float64) ([]float64, error) {
	policy := r.Policy
	if policy.MaxRepetitions <= 0 {
		policy.MaxRepetitions = iterations
	}
	if policy.MinRepetitions <= 0 {
		policy.MinRepetitions = DefaultMinRepetitions
	}
	if len(thresholds) != len(sc.ByteSizes) {
		return nil, &SimulationError{Benchmark: sc.Benchmark, Reason: fmt.Sprintf("%d thresholds for %d byte sizes", len(thresholds), len(sc.ByteSizes))}
	}

	stats := make([]runningStats, len(sc.ByteSizes))
	pending := make([]int, len(sc.ByteSizes))
	for i := range pending {
		pending[i] = i
	}
	for len(pending) > 0 {
		sub := Scenario{Benchmark: sc.Benchmark, NodeCount: sc.NodeCount, Processes: sc.Processes}
		subThresholds := make([]float64, len(pending))
		for j, i := range pending {
			sub.ByteSizes = append(sub.ByteSizes, sc.ByteSizes[i])
			subThresholds[j] = thresholds[i]
		}
		values, err := r.Runner.RunScenario(a, sub, 1, subThresholds)
		if err != nil {
			return nil, err
		}
		next := pending[:0]
		for j, i := range pending {
			stats[i].add(values[j])
			if policy.NeedMore(stats[i].count, stats[i].relStdErr(), thresholds[i]) {
				next = append(next, i)
			}
		}
		pending = next
	}

	out := make([]float64, len(stats))
	for i := range stats {
		out[i] = stats[i].mean()
		logrus.Debugf("%s %d bytes: %d repetitions, relstderr %.3f", sc.Benchmark, sc.ByteSizes[i], stats[i].count, stats[i].relStdErr())
	}
	return out, nil
}
