package search

import (
	"fmt"
	"math/rand"

	"github.com/inference-sim/netcal/calib"
)

// Algorithm names accepted by NewGenerator.
const (
	AlgorithmRandom = "random"
	AlgorithmGrid   = "grid"
)

// Generator yields candidate parameter sets. Next returns false once the
// generator is exhausted. Generators are used from a single goroutine.
type Generator interface {
	Next() (calib.Params, bool)
}

// NewGenerator builds the named generator over space.
func NewGenerator(algorithm string, space *Space, seed int64, gridPoints int) (Generator, error) {
	switch algorithm {
	case AlgorithmRandom:
		return NewRandomSearch(space, seed), nil
	case AlgorithmGrid:
		return NewGridSearch(space, gridPoints)
	}
	return nil, fmt.Errorf("unknown search algorithm %q (want %s or %s)", algorithm, AlgorithmRandom, AlgorithmGrid)
}

// RandomSearch samples every dimension uniformly and independently, each
// from its own seeded stream.
type RandomSearch struct {
	space *Space
	rngs  []*rand.Rand
}

// NewRandomSearch creates an unbounded, seeded random generator.
func NewRandomSearch(space *Space, seed int64) *RandomSearch {
	rngs := make([]*rand.Rand, len(space.Dimensions))
	for i, d := range space.Dimensions {
		rngs[i] = dimensionRNG(seed, d.Name)
	}
	return &RandomSearch{space: space, rngs: rngs}
}

// Next implements Generator; it never runs out.
func (r *RandomSearch) Next() (calib.Params, bool) {
	p := r.space.candidate()
	for i, d := range r.space.Dimensions {
		p[d.Name] = d.at(r.rngs[i].Float64())
	}
	return p, true
}

// GridSearch enumerates the cartesian product of the dimensions, with
// numeric dimensions discretized into evenly spaced points.
type GridSearch struct {
	space  *Space
	axes   [][]string
	cursor []int
	done   bool
}

// NewGridSearch discretizes continuous and exponential dimensions into
// points values each (ordinal dimensions use their own values).
func NewGridSearch(space *Space, points int) (*GridSearch, error) {
	if points < 1 {
		return nil, fmt.Errorf("grid points must be at least 1, got %d", points)
	}
	g := &GridSearch{space: space, cursor: make([]int, len(space.Dimensions))}
	for _, d := range space.Dimensions {
		var axis []string
		if d.Type == Ordinal {
			axis = append(axis, d.Values...)
		} else if points == 1 {
			axis = []string{d.at(0.5)}
		} else {
			for i := 0; i < points; i++ {
				axis = append(axis, d.at(float64(i)/float64(points-1)))
			}
		}
		g.axes = append(g.axes, axis)
	}
	return g, nil
}

// Size returns the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, axis := range g.axes {
		n *= len(axis)
	}
	return n
}

// Next implements Generator, advancing the last dimension fastest.
func (g *GridSearch) Next() (calib.Params, bool) {
	if g.done {
		return nil, false
	}
	p := g.space.candidate()
	for i, d := range g.space.Dimensions {
		p[d.Name] = g.axes[i][g.cursor[i]]
	}
	i := len(g.cursor) - 1
	for ; i >= 0; i-- {
		g.cursor[i]++
		if g.cursor[i] < len(g.axes[i]) {
			break
		}
		g.cursor[i] = 0
	}
	if i < 0 {
		g.done = true
	}
	return p, true
}
