package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpace(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadSpace_ParsesAllDimensionTypes(t *testing.T) {
	path := writeSpace(t, `
parameters:
  - name: cpu_speed
    type: continuous
    min: 1
    max: 3
    unit: Gf
  - name: smpi/async-small-thresh
    type: exponential
    min: 10
    max: 16
  - name: network/model
    type: ordinal
    values: [SMPI, CM02]
fixed:
  network/latency-factor_0: "1.0"
`)
	s, err := LoadSpace(path)
	require.NoError(t, err)
	require.Len(t, s.Dimensions, 3)
	assert.Equal(t, "Gf", s.Dimensions[0].Unit)
	assert.Equal(t, Exponential, s.Dimensions[1].Type)
	assert.Equal(t, []string{"SMPI", "CM02"}, s.Dimensions[2].Values)
	assert.Equal(t, "1.0", s.Fixed["network/latency-factor_0"])
}

func TestLoadSpace_UnknownField_ReturnsError(t *testing.T) {
	path := writeSpace(t, `
parameters:
  - name: cpu_speed
    type: continuous
    minimum: 1
`)
	_, err := LoadSpace(path)
	assert.Error(t, err)
}

func TestSpace_Validate(t *testing.T) {
	tests := []struct {
		name  string
		space Space
	}{
		{"empty", Space{}},
		{"no name", Space{Dimensions: []Dimension{{Type: Continuous, Min: 0, Max: 1}}}},
		{"duplicate", Space{Dimensions: []Dimension{{Name: "a", Type: Ordinal, Values: []string{"x"}}, {Name: "a", Type: Ordinal, Values: []string{"y"}}}}},
		{"inverted range", Space{Dimensions: []Dimension{{Name: "a", Type: Continuous, Min: 2, Max: 1}}}},
		{"ordinal without values", Space{Dimensions: []Dimension{{Name: "a", Type: Ordinal}}}},
		{"unknown type", Space{Dimensions: []Dimension{{Name: "a", Type: "log"}}}},
		{"dimension also fixed", Space{Dimensions: []Dimension{{Name: "a", Type: Ordinal, Values: []string{"x"}}}, Fixed: map[string]string{"a": "y"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.space.Validate())
		})
	}
}

func TestDimension_At(t *testing.T) {
	cont := Dimension{Name: "c", Type: Continuous, Min: 1, Max: 3, Unit: "Gf"}
	assert.Equal(t, "1Gf", cont.at(0))
	assert.Equal(t, "2Gf", cont.at(0.5))
	assert.Equal(t, "3Gf", cont.at(1))

	exp := Dimension{Name: "e", Type: Exponential, Min: 10, Max: 12}
	assert.Equal(t, "1024", exp.at(0))
	assert.Equal(t, "2048", exp.at(0.5))
	assert.Equal(t, "4096", exp.at(1))

	ord := Dimension{Name: "o", Type: Ordinal, Values: []string{"a", "b", "c"}}
	assert.Equal(t, "a", ord.at(0))
	assert.Equal(t, "b", ord.at(0.5))
	assert.Equal(t, "c", ord.at(1))
}
