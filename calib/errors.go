package calib

import "fmt"

// ConfigurationError reports a parameter assignment that cannot be routed:
// an unknown parameter name or a factor curve whose indices do not pair up
// with its split boundaries.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: parameter %q: %s", e.Param, e.Reason)
}

// CompilationError reports a platform generator failure or a missing module.
type CompilationError struct {
	Dir      string
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("platform compilation failed in %s: %s", e.Dir, e.Reason)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

// SimulationError reports a simulator crash or unparseable simulator output.
type SimulationError struct {
	Benchmark string
	ExitCode  int
	Stderr    string
	Reason    string
}

func (e *SimulationError) Error() string {
	msg := fmt.Sprintf("simulation of %s failed: %s", e.Benchmark, e.Reason)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

// GroundTruthError reports unusable ground-truth input or run setup.
type GroundTruthError struct {
	Reason string
}

func (e *GroundTruthError) Error() string {
	return "ground truth: " + e.Reason
}
