package calib

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ObjectiveConfig holds the run-wide settings of an Objective.
type ObjectiveConfig struct {
	Iterations int          // simulator repetitions per point
	Loss       PointReducer // reduces point losses within a scenario
	Aggregator Aggregator   // reduces scenario losses within a trial
}

// Objective turns a calibration into a scalar loss by simulating every
// ground-truth scenario on a freshly compiled platform. Evaluate may be
// called from many goroutines at once.
type Objective struct {
	cfg         ObjectiveConfig
	groundTruth *GroundTruth
	thresholds  [][]float64
	router      *Router
	compiler    Compiler
	runner      ScenarioRunner
	best        *BestTracker
	sinks       []ReportSink
}

// NewObjective validates the ground truth and the loss settings and
// precomputes the per-point simulator thresholds.
func NewObjective(cfg ObjectiveConfig, gt *GroundTruth, router *Router, compiler Compiler, runner ScenarioRunner, best *BestTracker, sinks ...ReportSink) (*Objective, error) {
	if gt == nil || len(gt.Scenarios) == 0 {
		return nil, &GroundTruthError{Reason: "no scenarios to calibrate against"}
	}
	if err := gt.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseLossFunction(string(cfg.Loss)); err != nil {
		return nil, err
	}
	if _, err := ParseAggregator(string(cfg.Aggregator)); err != nil {
		return nil, err
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}
	if best == nil {
		best = NewBestTracker()
	}
	thresholds := make([][]float64, len(gt.Scenarios))
	for i, obs := range gt.Observations {
		thresholds[i] = Thresholds(obs)
	}
	return &Objective{
		cfg:         cfg,
		groundTruth: gt,
		thresholds:  thresholds,
		router:      router,
		compiler:    compiler,
		runner:      runner,
		best:        best,
		sinks:       sinks,
	}, nil
}

// Best returns the tracker shared by all evaluations.
func (o *Objective) Best() *BestTracker {
	return o.best
}

// GroundTruth returns the scenarios the objective evaluates.
func (o *Objective) GroundTruth() *GroundTruth {
	return o.groundTruth
}

// Evaluate routes params, compiles a platform, simulates every scenario and
// returns the aggregated loss. Every error is fatal for the calibration run:
// routing problems surface before anything is compiled, and a failed
// compilation never reaches the simulator or the best-result record.
func (o *Objective) Evaluate(params Params) (float64, error) {
	start := time.Now()
	id := uuid.NewString()
	log := logrus.WithField("trial", id)

	routed, err := o.router.Route(params)
	if err != nil {
		return 0, err
	}

	var (
		result TrialResult
		loss   float64
	)
	err = WithPlatform(o.compiler, routed, func(a *Artifact) error {
		a.Flags = routed.Flags
		losses := make([]float64, 0, len(o.groundTruth.Scenarios))
		for i, sc := range o.groundTruth.Scenarios {
			values, err := o.runner.RunScenario(a, sc, o.cfg.Iterations, o.thresholds[i])
			if err != nil {
				return err
			}
			scLoss, err := ScenarioLoss(values, o.groundTruth.Observations[i], o.cfg.Loss)
			if err != nil {
				return &SimulationError{Benchmark: sc.Benchmark, Reason: err.Error()}
			}
			log.Debugf("%s: loss %.4f", sc, scLoss)
			losses = append(losses, scLoss)
			result = append(result, values...)
		}
		loss, err = Aggregate(losses, o.cfg.Aggregator)
		return err
	})
	if err != nil {
		return 0, err
	}

	elapsed := time.Since(start)
	report := TrialReport{
		ID:          id,
		Calibration: params.Clone(),
		Result:      result,
		Loss:        loss,
		Duration:    elapsed,
		Seconds:     elapsed.Seconds(),
		Finished:    time.Now(),
	}
	log.Infof("Result: %s", report)
	if o.best.Observe(loss, result) {
		log.Infof("new best loss %.6f", loss)
	}
	for _, sink := range o.sinks {
		if err := sink.Record(report); err != nil {
			log.Warnf("recording trial report: %v", err)
		}
	}
	return loss, nil
}
