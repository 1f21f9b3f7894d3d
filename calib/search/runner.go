package search

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netcal/calib"
)

// Evaluator scores a calibration; lower is better.
type Evaluator interface {
	Evaluate(params calib.Params) (float64, error)
}

// RunnerConfig bounds a search.
type RunnerConfig struct {
	Workers   int           // concurrent trials (default 1)
	TimeLimit time.Duration // stop issuing trials after this long (0 = none)
	MaxTrials int           // stop after this many trials (0 = none)
}

// Result is the outcome of a search.
type Result struct {
	Calibration calib.Params
	Loss        float64
	Trials      int
	Elapsed     time.Duration
}

// Runner evaluates generated candidates on a bounded worker pool.
type Runner struct {
	cfg RunnerConfig

	mu       sync.Mutex
	best     calib.Params
	bestLoss float64
	done     int
	err      error
}

// NewRunner creates a runner; a search needs a time limit or a trial cap
// unless the generator is finite.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, bestLoss: math.Inf(1)}
}

// Run issues trials until the generator is exhausted, the time limit or
// trial cap is reached, ctx is done, or a trial fails. In-flight trials are
// never interrupted; Run waits for them before returning. The first trial
// error aborts the search and is returned.
func (r *Runner) Run(ctx context.Context, gen Generator, eval Evaluator) (*Result, error) {
	start := time.Now()
	var deadline time.Time
	if r.cfg.TimeLimit > 0 {
		deadline = start.Add(r.cfg.TimeLimit)
	}

	slots := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup
	issued := 0
	for r.cfg.MaxTrials == 0 || issued < r.cfg.MaxTrials {
		slots <- struct{}{}
		if r.stopped(ctx, deadline) {
			<-slots
			break
		}
		params, ok := gen.Next()
		if !ok {
			<-slots
			break
		}
		issued++
		wg.Add(1)
		go func(trial int, p calib.Params) {
			defer wg.Done()
			defer func() { <-slots }()
			logrus.Debugf("trial %d: %v", trial, p)
			loss, err := eval.Evaluate(p)
			r.record(p, loss, err)
		}(issued, params)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	res := &Result{Loss: r.bestLoss, Trials: r.done, Elapsed: time.Since(start)}
	if r.best != nil {
		res.Calibration = r.best.Clone()
	}
	if r.err != nil {
		return res, fmt.Errorf("calibration aborted after %d trials: %w", r.done, r.err)
	}
	if r.done == 0 {
		return res, fmt.Errorf("no trials were evaluated")
	}
	return res, nil
}

func (r *Runner) stopped(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		logrus.Infof("time limit of %s reached, waiting for in-flight trials", r.cfg.TimeLimit)
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

func (r *Runner) record(p calib.Params, loss float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.done++
	if loss < r.bestLoss {
		r.bestLoss = loss
		r.best = p.Clone()
	}
}
