package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreshold(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    float64
	}{
		{"constant samples floor", []float64{10, 10, 10}, MinThreshold},
		{"zero mean floor", []float64{0, 0}, MinThreshold},
		{"empty floor", nil, MinThreshold},
		{"population std ten percent", []float64{90, 110}, 0.1},
		{"exactly the floor", []float64{95, 105}, 0.05},
		{"below the floor", []float64{99, 101}, MinThreshold},
		{"rounded to two decimals", []float64{100, 133}, 0.14},
		{"twenty percent", []float64{80, 120}, 0.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Threshold(tc.samples), 1e-12)
		})
	}
}

func TestThresholds_OnePerByteSize(t *testing.T) {
	got := Thresholds(ScenarioObservations{{90, 110}, {5, 5}})
	assert.Equal(t, []float64{0.1, MinThreshold}, got)
}

func TestJoinHelpers(t *testing.T) {
	assert.Equal(t, "0.05,0.1,1.25", joinFloats([]float64{0.05, 0.1, 1.25}))
	assert.Equal(t, "1,1024,1048576", joinInts([]int64{1, 1024, 1048576}))
}
