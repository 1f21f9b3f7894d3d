package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var calibrationPath string // Calibration to evaluate

// evaluateCmd runs the objective once on a fixed calibration.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single calibration against the ground truth",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadRunConfig()
		if calibrationPath == "" {
			logrus.Fatalf("--calibration is required")
		}
		params, err := loadCalibration(calibrationPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		recorder := &Recorder{}
		s, err := newSession(cfg, recorder)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer s.Close()

		loss, err := s.objective.Evaluate(params)
		if err != nil {
			s.Close()
			logrus.Fatalf("%v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loss: %.6f\n", loss)
		for _, r := range recorder.Reports() {
			fmt.Fprintf(cmd.OutOrStdout(), "trial %s took %.1fs\n", r.ID, r.Seconds)
		}
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&calibrationPath, "calibration", "", "YAML file mapping parameter names to values")
	rootCmd.AddCommand(evaluateCmd)
}
