// Package search drives calibration trials over a parameter space.
//
// The calibration objective is the only thing the drivers know about: they
// generate candidate parameter sets, evaluate them on a bounded pool of
// workers and keep the best one. Random and grid sampling are provided.
package search

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/netcal/calib"
)

// Dimension types accepted in a space file.
const (
	Continuous  = "continuous"
	Exponential = "exponential" // base-2 exponent range
	Ordinal     = "ordinal"
)

// Dimension is one searchable parameter.
type Dimension struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Min    float64  `yaml:"min,omitempty"`
	Max    float64  `yaml:"max,omitempty"`
	Unit   string   `yaml:"unit,omitempty"` // appended to numeric values, e.g. "Gf"
	Values []string `yaml:"values,omitempty"`
}

// Space is the set of dimensions plus parameters held fixed in every trial.
type Space struct {
	Dimensions []Dimension        `yaml:"parameters"`
	Fixed      map[string]string `yaml:"fixed,omitempty"`
}

// LoadSpace reads a parameter space from YAML with strict field checking.
func LoadSpace(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter space: %w", err)
	}
	var s Space
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing parameter space %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names, types and bounds.
func (s *Space) Validate() error {
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("parameter space has no dimensions")
	}
	seen := make(map[string]bool, len(s.Dimensions))
	for i, d := range s.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("dimension %d has no name", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("dimension %q declared twice", d.Name)
		}
		seen[d.Name] = true
		if _, ok := s.Fixed[d.Name]; ok {
			return fmt.Errorf("dimension %q is also fixed", d.Name)
		}
		switch d.Type {
		case Continuous, Exponential:
			if math.IsNaN(d.Min) || math.IsNaN(d.Max) || d.Min > d.Max {
				return fmt.Errorf("dimension %q: invalid range [%v, %v]", d.Name, d.Min, d.Max)
			}
		case Ordinal:
			if len(d.Values) == 0 {
				return fmt.Errorf("dimension %q: ordinal needs values", d.Name)
			}
		default:
			return fmt.Errorf("dimension %q: unknown type %q", d.Name, d.Type)
		}
	}
	return nil
}

// at returns the textual value of the dimension at position u in [0, 1].
func (d Dimension) at(u float64) string {
	switch d.Type {
	case Ordinal:
		i := int(u * float64(len(d.Values)))
		if i >= len(d.Values) {
			i = len(d.Values) - 1
		}
		return d.Values[i]
	case Exponential:
		return formatValue(math.Pow(2, d.Min+u*(d.Max-d.Min)), d.Unit)
	default:
		return formatValue(d.Min+u*(d.Max-d.Min), d.Unit)
	}
}

func formatValue(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}

// candidate merges the fixed parameters into a fresh parameter set.
func (s *Space) candidate() calib.Params {
	p := make(calib.Params, len(s.Dimensions)+len(s.Fixed))
	for k, v := range s.Fixed {
		p[k] = v
	}
	return p
}
