package calib

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParamKind is the destination of a calibration parameter.
type ParamKind int

const (
	// RuntimeFlag is passed verbatim to the simulator as --cfg=name:value.
	RuntimeFlag ParamKind = iota
	// NodeField overrides a key of the node configuration.
	NodeField
	// TopologyField overrides a key of the topology configuration.
	TopologyField
	// CurveFactor is one indexed factor of a latency/bandwidth curve.
	CurveFactor
	// CurveSplit is one indexed byte boundary of a latency/bandwidth curve.
	CurveSplit
)

func (k ParamKind) String() string {
	switch k {
	case RuntimeFlag:
		return "runtime-flag"
	case NodeField:
		return "node"
	case TopologyField:
		return "topology"
	case CurveFactor:
		return "curve-factor"
	case CurveSplit:
		return "curve-split"
	}
	return "unknown"
}

// CurveFamily names a piecewise network factor curve.
type CurveFamily string

const (
	LatencyFactor   CurveFamily = "latency"
	BandwidthFactor CurveFamily = "bandwidth"
)

// curveFamilies fixes the order in which curve flags are emitted.
var curveFamilies = []CurveFamily{LatencyFactor, BandwidthFactor}

// Flag returns the simulator configuration key of the curve.
func (c CurveFamily) Flag() string {
	return "network/" + string(c) + "-factor"
}

// Param is a classified calibration parameter.
type Param struct {
	Kind  ParamKind
	Name  string
	Value string
	Curve CurveFamily // CurveFactor and CurveSplit only
	Index int         // CurveFactor and CurveSplit only
}

var curveIndexed = regexp.MustCompile(`^network/(latency|bandwidth)-factor(-split)?_(\d+)$`)

// RoutedConfig is the outcome of routing one parameter assignment.
type RoutedConfig struct {
	Flags    []string
	Node     map[string]any
	Topology map[string]any
}

// Router splits calibration parameters between simulator flags, the node
// configuration and the topology configuration.
type Router struct {
	node      map[string]any
	topology  map[string]any
	byteSplit []string
}

// NewRouter creates a Router over the given templates. byteSplit is the
// default boundary list used by curves whose split values are not part of
// the parameter set.
func NewRouter(nodeTemplate, topologyTemplate map[string]any, byteSplit []int64) *Router {
	split := make([]string, len(byteSplit))
	for i, b := range byteSplit {
		split[i] = strconv.FormatInt(b, 10)
	}
	return &Router{node: nodeTemplate, topology: topologyTemplate, byteSplit: split}
}

// Classify determines the destination of a single parameter.
func (r *Router) Classify(name, value string) (Param, error) {
	p := Param{Name: name, Value: value}
	if strings.Contains(name, "/") {
		// Only indexed curve keys are assembled; anything else, including a
		// whole curve given verbatim, is passed through as a runtime flag.
		m := curveIndexed.FindStringSubmatch(name)
		if m == nil {
			p.Kind = RuntimeFlag
			return p, nil
		}
		idx, err := strconv.Atoi(m[3])
		if err != nil {
			return Param{}, &ConfigurationError{Param: name, Reason: fmt.Sprintf("bad curve index: %v", err)}
		}
		p.Curve = CurveFamily(m[1])
		p.Index = idx
		p.Kind = CurveFactor
		if m[2] != "" {
			p.Kind = CurveSplit
		}
		return p, nil
	}
	if _, ok := r.node[name]; ok {
		p.Kind = NodeField
		return p, nil
	}
	if _, ok := r.topology[name]; ok {
		p.Kind = TopologyField
		return p, nil
	}
	return Param{}, &ConfigurationError{Param: name, Reason: "not a simulator flag, node field or topology field"}
}

type curve struct {
	factors map[int]string
	splits  map[int]string
}

// Route classifies every parameter and assembles the simulator flags and the
// node/topology configurations. Templates are left untouched. Route has no
// side effects; any error means nothing should be compiled or run.
func (r *Router) Route(params Params) (*RoutedConfig, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &RoutedConfig{
		Node:     copyConfig(r.node),
		Topology: copyConfig(r.topology),
	}
	curves := make(map[CurveFamily]*curve)
	for _, name := range names {
		p, err := r.Classify(name, params[name])
		if err != nil {
			return nil, err
		}
		switch p.Kind {
		case RuntimeFlag:
			out.Flags = append(out.Flags, fmt.Sprintf("--cfg=%s:%s", p.Name, p.Value))
		case NodeField:
			out.Node[p.Name] = typedLike(r.node[p.Name], p.Value)
		case TopologyField:
			out.Topology[p.Name] = typedLike(r.topology[p.Name], p.Value)
		case CurveFactor, CurveSplit:
			c, ok := curves[p.Curve]
			if !ok {
				c = &curve{factors: map[int]string{}, splits: map[int]string{}}
				curves[p.Curve] = c
			}
			if p.Kind == CurveFactor {
				c.factors[p.Index] = p.Value
			} else {
				c.splits[p.Index] = p.Value
			}
		default:
			return nil, fmt.Errorf("unhandled parameter kind %v for %q", p.Kind, p.Name)
		}
	}

	for _, family := range curveFamilies {
		c, ok := curves[family]
		if !ok {
			continue
		}
		flag, err := r.curveFlag(family, c)
		if err != nil {
			return nil, err
		}
		if flag != "" {
			out.Flags = append(out.Flags, flag)
		}
	}
	return out, nil
}

// curveFlag pairs the factors of one curve with their byte boundaries and
// serializes them as --cfg=network/<family>-factor:"b0:f0;b1:f1;...".
func (r *Router) curveFlag(family CurveFamily, c *curve) (string, error) {
	if len(c.factors) == 0 {
		if len(c.splits) > 0 {
			return "", &ConfigurationError{Param: family.Flag() + "-split", Reason: "split boundaries given without factors"}
		}
		return "", nil
	}
	factors, err := ordered(c.factors, family.Flag())
	if err != nil {
		return "", err
	}
	split := r.byteSplit
	if len(c.splits) > 0 {
		if split, err = ordered(c.splits, family.Flag()+"-split"); err != nil {
			return "", err
		}
	}
	if len(split) != len(factors) {
		return "", &ConfigurationError{
			Param:  family.Flag(),
			Reason: fmt.Sprintf("%d factors but %d byte split boundaries", len(factors), len(split)),
		}
	}
	pairs := make([]string, len(factors))
	for i := range factors {
		pairs[i] = split[i] + ":" + factors[i]
	}
	return fmt.Sprintf("--cfg=%s:\"%s\"", family.Flag(), strings.Join(pairs, ";")), nil
}

// ordered turns an index->value map into a slice, requiring indices 0..n-1.
func ordered(m map[int]string, name string) ([]string, error) {
	out := make([]string, len(m))
	for idx, v := range m {
		if idx < 0 || idx >= len(m) {
			return nil, &ConfigurationError{Param: name, Reason: fmt.Sprintf("indices must be contiguous from 0, got index %d of %d", idx, len(m))}
		}
		out[idx] = v
	}
	return out, nil
}

func copyConfig(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// typedLike keeps the JSON type of the template field when the textual value
// can be represented in it, so numeric fields stay numeric.
func typedLike(template any, value string) any {
	switch template.(type) {
	case float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case bool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}
