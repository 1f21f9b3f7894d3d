package calib

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FitSummary compares a simulated result vector with the empirical means.
type FitSummary struct {
	RealP50       float64 `json:"real_p50"`
	SimP50        float64 `json:"sim_p50"`
	RealP90       float64 `json:"real_p90"`
	SimP90        float64 `json:"sim_p90"`
	MAPE          float64 `json:"mape"`
	PearsonR      float64 `json:"pearson_r"`
	BiasDirection string  `json:"bias_direction"` // over-predict, under-predict or neutral
	Quality       string  `json:"quality"`
	Count         int     `json:"count"`
}

// ComputeFit summarizes how well sim matches real point by point.
func ComputeFit(real, sim []float64) (*FitSummary, error) {
	if len(real) == 0 || len(sim) == 0 {
		return nil, fmt.Errorf("empty throughput vectors")
	}
	if len(real) != len(sim) {
		return nil, fmt.Errorf("mismatched vector lengths: real=%d sim=%d", len(real), len(sim))
	}

	fit := &FitSummary{Count: len(real)}
	realSorted := sortedCopy(real)
	simSorted := sortedCopy(sim)
	fit.RealP50 = percentileFromSorted(realSorted, 50)
	fit.SimP50 = percentileFromSorted(simSorted, 50)
	fit.RealP90 = percentileFromSorted(realSorted, 90)
	fit.SimP90 = percentileFromSorted(simSorted, 90)

	// MAPE (skip where real == 0)
	mapeSum := 0.0
	mapeCount := 0
	biasSum := 0.0
	for i := range real {
		if real[i] == 0 {
			continue
		}
		mapeSum += math.Abs(real[i]-sim[i]) / real[i]
		mapeCount++
		biasSum += sim[i] - real[i]
	}
	if mapeCount > 0 {
		fit.MAPE = mapeSum / float64(mapeCount)
		switch {
		case biasSum > 0:
			fit.BiasDirection = "over-predict"
		case biasSum < 0:
			fit.BiasDirection = "under-predict"
		default:
			fit.BiasDirection = "neutral"
		}
	}

	// Pearson r (requires N >= 3)
	if len(real) >= 3 {
		if r := stat.Correlation(real, sim, nil); !math.IsNaN(r) {
			fit.PearsonR = r
		}
	}
	fit.Quality = qualityRating(fit.MAPE, fit.PearsonR)
	return fit, nil
}

func sortedCopy(vals []float64) []float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	return s
}

func percentileFromSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func qualityRating(mape, pearsonR float64) string {
	if mape < 0.10 && pearsonR > 0.95 {
		return "excellent"
	}
	if mape < 0.20 && pearsonR > 0.85 {
		return "good"
	}
	if mape < 0.35 && pearsonR > 0.70 {
		return "fair"
	}
	return "poor"
}
