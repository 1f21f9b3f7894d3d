package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string // Log verbosity level
	configPath string // Path to run.yaml
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "netcal",
	Short: "Calibrate SMPI network platform models against measured MPI throughput",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// mustLoadRunConfig loads --config or exits.
func mustLoadRunConfig() *RunConfig {
	if configPath == "" {
		logrus.Fatalf("--config is required")
	}
	cfg, err := loadRunConfig(configPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the run configuration (run.yaml)")
}
