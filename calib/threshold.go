package calib

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// MinThreshold is the smallest relative noise threshold handed to the simulator.
const MinThreshold = 0.05

// Threshold returns the relative standard deviation of samples rounded to two
// decimals, floored at MinThreshold (also used when the mean is zero).
// The simulator uses it as its per-size convergence target.
func Threshold(samples []float64) float64 {
	if len(samples) == 0 {
		return MinThreshold
	}
	mean, std := stat.PopMeanStdDev(samples, nil)
	if mean == 0 {
		return MinThreshold
	}
	t := math.Round(std/mean*100) / 100
	if t < MinThreshold {
		return MinThreshold
	}
	return t
}

// Thresholds computes Threshold for every sample set of a scenario.
func Thresholds(obs ScenarioObservations) []float64 {
	out := make([]float64, len(obs))
	for i, s := range obs {
		out[i] = Threshold(s)
	}
	return out
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func joinInts(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}
