package calib

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PointReducer reduces the point losses of one scenario.
type PointReducer string

// Aggregator reduces scenario losses into the trial loss.
type Aggregator string

const (
	// PointAverage averages the per-byte-size losses of a scenario.
	PointAverage PointReducer = "average"
	// PointMax keeps the worst per-byte-size loss of a scenario.
	PointMax PointReducer = "max"

	// AggregateAverage averages scenario losses.
	AggregateAverage Aggregator = "average_agg"
	// AggregateMax keeps the worst scenario loss.
	AggregateMax Aggregator = "max_agg"
)

// ParseLossFunction validates a point reducer name.
func ParseLossFunction(name string) (PointReducer, error) {
	switch PointReducer(name) {
	case PointAverage, PointMax:
		return PointReducer(name), nil
	}
	return "", &GroundTruthError{Reason: fmt.Sprintf("unknown loss function %q (want average or max)", name)}
}

// ParseAggregator validates an aggregator name.
func ParseAggregator(name string) (Aggregator, error) {
	switch Aggregator(name) {
	case AggregateAverage, AggregateMax:
		return Aggregator(name), nil
	}
	return "", &GroundTruthError{Reason: fmt.Sprintf("unknown loss aggregator %q (want average_agg or max_agg)", name)}
}

// PointLoss is the explained-variance error of one simulated value against
// its empirical samples: the L2 distance from the samples divided by the
// samples' own spread around their mean. Constant samples use denominator 1.
func PointLoss(simulated float64, samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	numerator := floats.Distance(samples, filled(len(samples), simulated), 2)
	denominator := floats.Distance(samples, filled(len(samples), stat.Mean(samples, nil)), 2)
	if denominator == 0 {
		denominator = 1
	}
	return numerator / denominator
}

// ScenarioLoss computes the point loss for every byte size of a scenario and
// reduces them with the given reducer.
func ScenarioLoss(simulated []float64, observations ScenarioObservations, reducer PointReducer) (float64, error) {
	if len(simulated) != len(observations) {
		return 0, fmt.Errorf("simulated %d points but have %d observation sets", len(simulated), len(observations))
	}
	if len(simulated) == 0 {
		return 0, fmt.Errorf("scenario has no points")
	}
	losses := make([]float64, len(simulated))
	for i, x := range simulated {
		losses[i] = PointLoss(x, observations[i])
	}
	switch reducer {
	case PointAverage:
		return stat.Mean(losses, nil), nil
	case PointMax:
		return floats.Max(losses), nil
	}
	return 0, fmt.Errorf("unknown point reducer %q", reducer)
}

// Aggregate reduces scenario losses into a single trial loss.
func Aggregate(losses []float64, agg Aggregator) (float64, error) {
	if len(losses) == 0 {
		return 0, fmt.Errorf("no scenario losses to aggregate")
	}
	switch agg {
	case AggregateAverage:
		return stat.Mean(losses, nil), nil
	case AggregateMax:
		return floats.Max(losses), nil
	}
	return 0, fmt.Errorf("unknown aggregator %q", agg)
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sampleMean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}
