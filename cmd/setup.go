package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netcal/calib"
	"github.com/inference-sim/netcal/calib/store"
)

// session holds everything built from a RunConfig for one calibration run.
type session struct {
	objective *calib.Objective
	store     *store.SQLiteStore
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logrus.Warnf("closing report database: %v", err)
		}
	}
}

// loadGroundTruth reads and filters the benchmark CSV.
func loadGroundTruth(cfg *RunConfig) (*calib.GroundTruth, error) {
	records, err := calib.LoadRecords(cfg.GroundTruth.Path)
	if err != nil {
		return nil, err
	}
	return calib.BuildGroundTruth(records, calib.Filter{
		BenchmarkParent: cfg.GroundTruth.BenchmarkParent,
		Benchmarks:      cfg.GroundTruth.Benchmarks,
		ByteSizes:       cfg.GroundTruth.ByteSizes,
		NodeCounts:      cfg.GroundTruth.NodeCounts,
		Validation:      cfg.GroundTruth.Validation,
	})
}

// newSession validates cfg and wires the objective with the configured
// database plus any extra sinks. Failures here happen before the first trial.
func newSession(cfg *RunConfig, sinks ...calib.ReportSink) (*session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	lossFn, _ := calib.ParseLossFunction(cfg.Loss.Function)
	agg, _ := calib.ParseAggregator(cfg.Loss.Aggregator)

	gt, err := loadGroundTruth(cfg)
	if err != nil {
		return nil, err
	}

	nodeTmpl, err := calib.LoadTemplate(cfg.Platform.NodeTemplate)
	if err != nil {
		return nil, fmt.Errorf("node template: %w", err)
	}
	topoTmpl, err := calib.LoadTemplate(cfg.Platform.TopologyTemplate)
	if err != nil {
		return nil, fmt.Errorf("topology template: %w", err)
	}
	router := calib.NewRouter(nodeTmpl, topoTmpl, cfg.Simulator.ByteSplit)

	compileLog, err := calib.NewTrialLog(cfg.Logs.Compile)
	if err != nil {
		return nil, err
	}
	simLog, err := calib.NewTrialLog(cfg.Logs.Simulator)
	if err != nil {
		return nil, err
	}

	compiler, err := calib.NewGeneratorCompiler(calib.GeneratorConfig{
		SourceDir:      cfg.Platform.GeneratorDir,
		Command:        cfg.Platform.GeneratorCommand,
		PlatformName:   cfg.Platform.PlatformName,
		WorkRoot:       cfg.Platform.WorkRoot,
		SimpleCompute:  cfg.Platform.SimpleCompute,
		KeepWorkspaces: cfg.Platform.KeepTmp,
	}, compileLog)
	if err != nil {
		return nil, err
	}

	executor, err := calib.NewSimulatorExecutor(calib.SimulatorConfig{
		Binary:        cfg.Simulator.Binary,
		Hostfile:      cfg.Simulator.Hostfile,
		BenchmarkExec: filepath.Join(cfg.Simulator.BenchmarkDir, cfg.Simulator.BenchmarkParent),
		HostSpeed:     cfg.Simulator.HostSpeed,
	}, simLog)
	if err != nil {
		return nil, err
	}
	var runner calib.ScenarioRunner = executor
	if cfg.Simulator.Resample.Enabled {
		runner = &calib.Resampler{
			Runner: executor,
			Policy: calib.ResamplePolicy{
				MinRepetitions: cfg.Simulator.Resample.MinRepetitions,
				MaxRepetitions: cfg.Simulator.Resample.MaxRepetitions,
			},
		}
		logrus.Infof("adaptive re-sampling enabled (min %d repetitions)", cfg.Simulator.Resample.MinRepetitions)
	}

	s := &session{}
	if cfg.Output.Database != "" {
		if s.store, err = store.Open(cfg.Output.Database); err != nil {
			return nil, err
		}
		sinks = append(sinks, s.store)
	}

	s.objective, err = calib.NewObjective(calib.ObjectiveConfig{
		Iterations: cfg.Simulator.Iterations,
		Loss:       lossFn,
		Aggregator: agg,
	}, gt, router, compiler, runner, calib.NewBestTracker(), sinks...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
