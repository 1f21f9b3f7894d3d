// Package calib implements the simulation-based objective used to calibrate
// SMPI platform descriptions against measured MPI point-to-point throughput.
//
// # Reading Guide
//
//   - groundtruth.go: empirical records → ordered scenarios and sample sets
//   - params.go: classification and routing of calibration parameters
//   - platform.go: per-trial workspace and external platform generator
//   - executor.go: external simulator invocation and output parsing
//   - loss.go: explained-variance point loss, scenario and trial reduction
//   - objective.go: Evaluate, tying the above together for one trial
//
// # Concurrency
//
// Objective.Evaluate is synchronous and may be called from many goroutines.
// Every trial compiles into its own workspace; the only shared state is the
// BestTracker, the append-only TrialLogs and the ReportSinks.
//
// # Errors
//
// ConfigurationError, CompilationError, SimulationError and GroundTruthError
// are all fatal to a calibration run. Callers stop issuing trials on the
// first error instead of treating it as a high loss.
//
// Search drivers live in calib/search; trial report persistence in calib/store.
package calib
