package calib

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointLoss_MeanPredictor_IsExactlyOne(t *testing.T) {
	// GIVEN samples with spread around their mean
	samples := []float64{1, 2, 3}

	// WHEN the simulated value equals the mean
	loss := PointLoss(2, samples)

	// THEN numerator and denominator coincide
	assert.InDelta(t, 1.0, loss, 1e-12)
}

func TestPointLoss_MeanMinimizesLoss(t *testing.T) {
	samples := []float64{90, 100, 110, 120}
	atMean := PointLoss(105, samples)
	for _, x := range []float64{0, 95, 104, 106, 130, 1000} {
		assert.Greater(t, PointLoss(x, samples), atMean, "sim=%v", x)
	}
}

func TestPointLoss_KnownValue(t *testing.T) {
	// sqrt(16+9+4) / sqrt(1+0+1)
	got := PointLoss(5, []float64{1, 2, 3})
	assert.InDelta(t, math.Sqrt(29)/math.Sqrt(2), got, 1e-12)
}

func TestPointLoss_ConstantSamples_UsesUnitDenominator(t *testing.T) {
	// GIVEN samples with zero spread
	samples := []float64{4, 4, 4}

	// WHEN evaluated at and away from the constant
	exact := PointLoss(4, samples)
	off := PointLoss(5, samples)

	// THEN the loss is finite and equals the raw distance
	assert.Equal(t, 0.0, exact)
	assert.InDelta(t, math.Sqrt(3), off, 1e-12)
	assert.False(t, math.IsInf(off, 0) || math.IsNaN(off))
}

func TestPointLoss_SingleSample(t *testing.T) {
	assert.InDelta(t, 2.0, PointLoss(7, []float64{5}), 1e-12)
}

func TestScenarioLoss_Reducers(t *testing.T) {
	obs := ScenarioObservations{{1, 2, 3}, {4, 4, 4}}
	sim := []float64{2, 5}

	avg, err := ScenarioLoss(sim, obs, PointAverage)
	require.NoError(t, err)
	assert.InDelta(t, (1+math.Sqrt(3))/2, avg, 1e-12)

	worst, err := ScenarioLoss(sim, obs, PointMax)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(3), worst, 1e-12)
}

func TestScenarioLoss_LengthMismatch_ReturnsError(t *testing.T) {
	_, err := ScenarioLoss([]float64{1}, ScenarioObservations{{1}, {2}}, PointAverage)
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		losses []float64
		agg    Aggregator
		want   float64
	}{
		{"average", []float64{1, 2, 3}, AggregateAverage, 2},
		{"max", []float64{1, 2, 3}, AggregateMax, 3},
		{"single average", []float64{0.5}, AggregateAverage, 0.5},
		{"single max", []float64{0.5}, AggregateMax, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Aggregate(tc.losses, tc.agg)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestAggregate_IndependentOfOrder(t *testing.T) {
	a, err := Aggregate([]float64{3, 1, 2}, AggregateAverage)
	require.NoError(t, err)
	b, err := Aggregate([]float64{1, 2, 3}, AggregateAverage)
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-12)

	a, _ = Aggregate([]float64{3, 1, 2}, AggregateMax)
	b, _ = Aggregate([]float64{2, 3, 1}, AggregateMax)
	assert.Equal(t, a, b)
}

func TestAggregate_Empty_ReturnsError(t *testing.T) {
	_, err := Aggregate(nil, AggregateAverage)
	assert.Error(t, err)
}

func TestParseLossFunction_Unknown_ReturnsGroundTruthError(t *testing.T) {
	_, err := ParseLossFunction("median")
	var gtErr *GroundTruthError
	require.True(t, errors.As(err, &gtErr))
	assert.Contains(t, gtErr.Reason, "median")

	_, err = ParseAggregator("sum_agg")
	require.True(t, errors.As(err, &gtErr))

	fn, err := ParseLossFunction("max")
	require.NoError(t, err)
	assert.Equal(t, PointMax, fn)
	agg, err := ParseAggregator("average_agg")
	require.NoError(t, err)
	assert.Equal(t, AggregateAverage, agg)
}
