package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/netcal/calib"
	"github.com/inference-sim/netcal/calib/search"
)

// RunConfig is the full calibration run configuration (run.yaml).
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	GroundTruth GroundTruthConfig `yaml:"ground_truth" json:"ground_truth"`
	Platform    PlatformConfig    `yaml:"platform" json:"platform"`
	Simulator   SimulatorConfig   `yaml:"simulator" json:"simulator"`
	Loss        LossConfig        `yaml:"loss" json:"loss"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Logs        LogsConfig        `yaml:"logs" json:"logs"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// GroundTruthConfig selects the empirical data to calibrate against.
type GroundTruthConfig struct {
	Path            string   `yaml:"path" json:"path"`
	BenchmarkParent string   `yaml:"benchmark_parent" json:"benchmark_parent"`
	Benchmarks      []string `yaml:"benchmarks" json:"benchmarks"`
	NodeCounts      []int    `yaml:"node_counts" json:"node_counts"`
	ByteSizes       []int64  `yaml:"byte_sizes" json:"byte_sizes"`
	Validation      bool     `yaml:"validation" json:"validation"`
}

// PlatformConfig configures the platform generator.
type PlatformConfig struct {
	GeneratorDir     string   `yaml:"generator_dir" json:"generator_dir"`
	GeneratorCommand []string `yaml:"generator_command" json:"generator_command"`
	NodeTemplate     string   `yaml:"node_template" json:"node_template"`
	TopologyTemplate string   `yaml:"topology_template" json:"topology_template"`
	PlatformName     string   `yaml:"platform_name" json:"platform_name"`
	SimpleCompute    bool     `yaml:"simple_compute" json:"simple_compute"`
	WorkRoot         string   `yaml:"work_root" json:"work_root"`
	KeepTmp          bool     `yaml:"keep_tmp" json:"keep_tmp"`
}

// SimulatorConfig configures the simulator invocation.
type SimulatorConfig struct {
	Binary          string         `yaml:"binary" json:"binary"`
	Hostfile        string         `yaml:"hostfile" json:"hostfile"`
	BenchmarkDir    string         `yaml:"benchmark_dir" json:"benchmark_dir"`
	BenchmarkParent string         `yaml:"benchmark_parent" json:"benchmark_parent"`
	Iterations      int            `yaml:"iterations" json:"iterations"`
	HostSpeed       float64        `yaml:"host_speed" json:"host_speed"`
	ByteSplit       []int64        `yaml:"byte_split" json:"byte_split"`
	Resample        ResampleConfig `yaml:"resample" json:"resample"`
}

// ResampleConfig enables repeating single-iteration runs until convergence.
type ResampleConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	MinRepetitions int  `yaml:"min_repetitions" json:"min_repetitions"`
	MaxRepetitions int  `yaml:"max_repetitions" json:"max_repetitions"`
}

// LossConfig selects the loss reducers.
type LossConfig struct {
	Function   string `yaml:"function" json:"function"`
	Aggregator string `yaml:"aggregator" json:"aggregator"`
}

// SearchConfig bounds the parameter search.
type SearchConfig struct {
	Algorithm  string `yaml:"algorithm" json:"algorithm"`
	Space      string `yaml:"space" json:"space"`
	TimeLimit  string `yaml:"time_limit" json:"time_limit"`
	Workers    int    `yaml:"workers" json:"workers"`
	MaxTrials  int    `yaml:"max_trials" json:"max_trials"`
	Seed       int64  `yaml:"seed" json:"seed"`
	GridPoints int    `yaml:"grid_points" json:"grid_points"`
}

// LogsConfig names the append-only trial logs.
type LogsConfig struct {
	Simulator string `yaml:"simulator" json:"simulator"`
	Compile   string `yaml:"compile" json:"compile"`
}

// OutputConfig names the run outputs.
type OutputConfig struct {
	Result   string `yaml:"result" json:"result"`
	Database string `yaml:"database" json:"database"`
}

// defaultHostSpeed is the flops rate of one simulated core.
const defaultHostSpeed = 6103515625

// loadRunConfig parses run.yaml with strict field checking, applies defaults
// and resolves relative paths against the file's directory.
func loadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

func (c *RunConfig) applyDefaults() {
	if c.GroundTruth.BenchmarkParent == "" {
		c.GroundTruth.BenchmarkParent = "all"
	}
	if len(c.Platform.GeneratorCommand) == 0 {
		c.Platform.GeneratorCommand = []string{"python3", "summit_generator.py"}
	}
	if c.Platform.NodeTemplate == "" {
		c.Platform.NodeTemplate = "config/node_config.json"
	}
	if c.Platform.TopologyTemplate == "" {
		c.Platform.TopologyTemplate = "config/fattree-complex.json"
	}
	if c.Platform.PlatformName == "" {
		c.Platform.PlatformName = "summit_temp"
	}
	if c.Simulator.Binary == "" {
		c.Simulator.Binary = "wrapper_parallel"
	}
	if c.Simulator.BenchmarkDir == "" {
		c.Simulator.BenchmarkDir = "/usr/local/bin"
	}
	if c.Simulator.BenchmarkParent == "" {
		c.Simulator.BenchmarkParent = "IMB-P2P"
	}
	if c.Simulator.Iterations == 0 {
		c.Simulator.Iterations = 10
	}
	if c.Simulator.HostSpeed == 0 {
		c.Simulator.HostSpeed = defaultHostSpeed
	}
	if c.Simulator.Resample.MinRepetitions == 0 {
		c.Simulator.Resample.MinRepetitions = calib.DefaultMinRepetitions
	}
	if c.Loss.Function == "" {
		c.Loss.Function = string(calib.PointAverage)
	}
	if c.Loss.Aggregator == "" {
		c.Loss.Aggregator = string(calib.AggregateAverage)
	}
	if c.Search.Algorithm == "" {
		c.Search.Algorithm = search.AlgorithmRandom
	}
	if c.Search.TimeLimit == "" {
		c.Search.TimeLimit = "3h"
	}
	if c.Search.Workers == 0 {
		c.Search.Workers = 1
	}
	if c.Search.Seed == 0 {
		c.Search.Seed = 42
	}
	if c.Search.GridPoints == 0 {
		c.Search.GridPoints = 5
	}
	if c.Logs.Simulator == "" {
		c.Logs.Simulator = "sim_stderr.txt"
	}
	if c.Logs.Compile == "" {
		c.Logs.Compile = "compile_stderr.txt"
	}
	if c.Output.Result == "" {
		c.Output.Result = "result.json"
	}
}

func (c *RunConfig) resolvePaths(base string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	resolve(&c.GroundTruth.Path)
	resolve(&c.Platform.GeneratorDir)
	resolve(&c.Simulator.Hostfile)
	resolve(&c.Search.Space)
	// Templates live inside the generator tree unless given absolutely.
	for _, p := range []*string{&c.Platform.NodeTemplate, &c.Platform.TopologyTemplate} {
		if !filepath.IsAbs(*p) {
			if c.Platform.GeneratorDir != "" {
				*p = filepath.Join(c.Platform.GeneratorDir, *p)
			} else {
				*p = filepath.Join(base, *p)
			}
		}
	}
}

// validate checks everything that can be checked before the first trial.
func (c *RunConfig) validate() error {
	if c.GroundTruth.Path == "" {
		return &calib.GroundTruthError{Reason: "ground_truth.path is required"}
	}
	if _, err := calib.ParseLossFunction(c.Loss.Function); err != nil {
		return err
	}
	if _, err := calib.ParseAggregator(c.Loss.Aggregator); err != nil {
		return err
	}
	if _, err := c.timeLimit(); err != nil {
		return err
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1, got %d", c.Search.Workers)
	}
	if c.Simulator.Iterations < 1 {
		return fmt.Errorf("simulator.iterations must be at least 1, got %d", c.Simulator.Iterations)
	}
	if c.Simulator.Hostfile == "" {
		return fmt.Errorf("simulator.hostfile is required")
	}
	if _, err := os.Stat(c.Simulator.Hostfile); err != nil {
		return fmt.Errorf("hostfile: %w", err)
	}
	return nil
}

func (c *RunConfig) timeLimit() (time.Duration, error) {
	d, err := time.ParseDuration(c.Search.TimeLimit)
	if err != nil {
		return 0, fmt.Errorf("search.time_limit: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("search.time_limit must not be negative")
	}
	return d, nil
}

// loadCalibration reads a single calibration (parameter name → value) from YAML.
func loadCalibration(path string) (calib.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}
	var params calib.Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parsing calibration file %s: %w", path, err)
	}
	return params, nil
}
