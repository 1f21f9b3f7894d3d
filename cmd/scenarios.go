package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/netcal/calib"
)

// scenariosCmd prints the ground truth the objective would evaluate.
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the filtered ground-truth scenarios and their simulator thresholds",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadRunConfig()
		gt, err := loadGroundTruth(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printScenarios(cmd.OutOrStdout(), gt)
	},
}

func printScenarios(w io.Writer, gt *calib.GroundTruth) {
	for i, sc := range gt.Scenarios {
		obs := gt.Observations[i]
		thresholds := calib.Thresholds(obs)
		samples := make([]string, len(obs))
		for k, s := range obs {
			samples[k] = fmt.Sprintf("%d", len(s))
		}
		fmt.Fprintf(w, "%s\n", sc)
		fmt.Fprintf(w, "  samples:    %s\n", strings.Join(samples, ","))
		fmt.Fprintf(w, "  thresholds: %v\n", thresholds)
	}
	fmt.Fprintf(w, "%d scenarios, %d points\n", len(gt.Scenarios), gt.Points())
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}
