package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/netcal/calib"
	"github.com/inference-sim/netcal/calib/search"
)

var (
	calibAlgorithm string // Overrides search.algorithm
	calibTimeLimit string // Overrides search.time_limit
	calibWorkers   int    // Overrides search.workers
	calibMaxTrials int    // Overrides search.max_trials
	calibKeepTmp   bool   // Keep per-trial workspaces
	calibDatabase  string // Overrides output.database
	calibOutput    string // Overrides output.result
)

// CalibrationOutput is the result file written at the end of a run.
type CalibrationOutput struct {
	Config  *RunConfig         `json:"config"`
	Results CalibrationResults `json:"results"`
}

// CalibrationResults holds the best calibration found, its simulated result
// vector and how well it fits.
type CalibrationResults struct {
	Calibration calib.Params      `json:"calibration"`
	Loss        float64           `json:"loss"`
	BestResult  calib.TrialResult `json:"best_result"`
	Trials      int               `json:"trials"`
	Elapsed     float64           `json:"elapsed_seconds"`
	Fit         *calib.FitSummary `json:"fit,omitempty"`
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Search the parameter space for the calibration that best reproduces the ground truth",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadRunConfig()
		applyCalibrateFlags(cmd, cfg)
		if cfg.Search.Space == "" {
			logrus.Fatalf("search.space is required for calibrate")
		}

		space, err := search.LoadSpace(cfg.Search.Space)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		gen, err := search.NewGenerator(cfg.Search.Algorithm, space, cfg.Search.Seed, cfg.Search.GridPoints)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		limit, err := cfg.timeLimit()
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		s, err := newSession(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer s.Close()

		gt := s.objective.GroundTruth()
		logrus.Infof("Calibrating against %d scenarios (%d points) with %s search, %d workers, time limit %s",
			len(gt.Scenarios), gt.Points(), cfg.Search.Algorithm, cfg.Search.Workers, limit)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := search.NewRunner(search.RunnerConfig{
			Workers:   cfg.Search.Workers,
			TimeLimit: limit,
			MaxTrials: cfg.Search.MaxTrials,
		})
		res, err := runner.Run(ctx, gen, s.objective)
		if err != nil {
			s.Close()
			logrus.Fatalf("%v", err)
		}

		out, err := buildOutput(cfg, res, s.objective)
		if err != nil {
			s.Close()
			logrus.Fatalf("%v", err)
		}
		if err := writeOutput(cfg.Output.Result, out); err != nil {
			s.Close()
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Best loss %.6f after %d trials in %s; result written to %s",
			res.Loss, res.Trials, res.Elapsed.Round(time.Second), cfg.Output.Result)
	},
}

// applyCalibrateFlags lets explicitly set flags override run.yaml.
func applyCalibrateFlags(cmd *cobra.Command, cfg *RunConfig) {
	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		cfg.Search.Algorithm = calibAlgorithm
	}
	if flags.Changed("time-limit") {
		cfg.Search.TimeLimit = calibTimeLimit
	}
	if flags.Changed("workers") {
		cfg.Search.Workers = calibWorkers
	}
	if flags.Changed("max-trials") {
		cfg.Search.MaxTrials = calibMaxTrials
	}
	if flags.Changed("keep-tmp") {
		cfg.Platform.KeepTmp = calibKeepTmp
	}
	if flags.Changed("db") {
		cfg.Output.Database = calibDatabase
	}
	if flags.Changed("output") {
		cfg.Output.Result = calibOutput
	}
}

// buildOutput assembles the result file from the search outcome and the
// best simulated result vector.
func buildOutput(cfg *RunConfig, res *search.Result, obj *calib.Objective) (*CalibrationOutput, error) {
	out := &CalibrationOutput{
		Config: cfg,
		Results: CalibrationResults{
			Calibration: res.Calibration,
			Loss:        res.Loss,
			Trials:      res.Trials,
			Elapsed:     res.Elapsed.Seconds(),
		},
	}
	best, ok := obj.Best().Best()
	if !ok {
		return out, nil
	}
	out.Results.BestResult = best.Result
	fit, err := calib.ComputeFit(obj.GroundTruth().Means(), best.Result)
	if err != nil {
		return nil, fmt.Errorf("computing fit summary: %w", err)
	}
	out.Results.Fit = fit
	return out, nil
}

func writeOutput(path string, out *CalibrationOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}
	return nil
}

func init() {
	calibrateCmd.Flags().StringVar(&calibAlgorithm, "algorithm", search.AlgorithmRandom, "Search algorithm (random, grid)")
	calibrateCmd.Flags().StringVar(&calibTimeLimit, "time-limit", "3h", "Stop issuing new trials after this long")
	calibrateCmd.Flags().IntVar(&calibWorkers, "workers", 1, "Number of concurrent trials")
	calibrateCmd.Flags().IntVar(&calibMaxTrials, "max-trials", 0, "Maximum number of trials (0 = unlimited)")
	calibrateCmd.Flags().BoolVar(&calibKeepTmp, "keep-tmp", false, "Keep per-trial platform workspaces")
	calibrateCmd.Flags().StringVar(&calibDatabase, "db", "", "SQLite database receiving every trial report")
	calibrateCmd.Flags().StringVar(&calibOutput, "output", "", "Path of the JSON result file")

	rootCmd.AddCommand(calibrateCmd)
}
