package calib

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// scratchPattern matches the per-rank logs the simulator wrapper leaves in
// its working directory.
const scratchPattern = "p2p_*.log"

// ScenarioRunner runs one scenario on a compiled platform and returns one
// simulated throughput per byte size.
type ScenarioRunner interface {
	RunScenario(a *Artifact, sc Scenario, iterations int, thresholds []float64) ([]float64, error)
}

// SimulatorConfig describes the external simulator invocation.
type SimulatorConfig struct {
	Binary        string  // simulator wrapper executable
	Hostfile      string  // MPI hostfile
	BenchmarkExec string  // benchmark binary run inside the simulation
	HostSpeed     float64 // flops, passed as smpi/host-speed
	// CollSelector selects the collective algorithms (default "ompi").
	CollSelector string
}

// SimulatorExecutor runs scenarios through the external simulator binary.
type SimulatorExecutor struct {
	cfg SimulatorConfig
	log *TrialLog
}

// NewSimulatorExecutor creates an executor appending command lines and
// simulator stderr to log.
func NewSimulatorExecutor(cfg SimulatorConfig, log *TrialLog) (*SimulatorExecutor, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("simulator binary is empty")
	}
	if cfg.CollSelector == "" {
		cfg.CollSelector = "ompi"
	}
	return &SimulatorExecutor{cfg: cfg, log: log}, nil
}

// NormalizeBenchmark maps benchmark variants onto the family name the
// benchmark binary understands (Stencil2D_x -> Stencil2D).
func NormalizeBenchmark(name string) string {
	for _, family := range []string{"Stencil2D", "Stencil3D"} {
		if strings.HasPrefix(name, family) {
			return family
		}
	}
	return name
}

// Args builds the simulator argument list: positional arguments first, then
// fixed flags, then the trial's routed flags.
func (e *SimulatorExecutor) Args(a *Artifact, sc Scenario, iterations int, thresholds []float64) []string {
	args := []string{
		a.Module,
		e.cfg.Hostfile,
		e.cfg.BenchmarkExec,
		NormalizeBenchmark(sc.Benchmark),
		joinFloats(thresholds),
		strconv.Itoa(iterations),
		joinInts(sc.ByteSizes),
		"--log=root.threshold:error",
		fmt.Sprintf("--cfg=smpi/host-speed:%sf", strconv.FormatFloat(e.cfg.HostSpeed, 'f', -1, 64)),
		fmt.Sprintf("--cfg=smpi/coll-selector:%q", e.cfg.CollSelector),
	}
	return append(args, a.Flags...)
}

// RunScenario invokes the simulator in the artifact's workspace and parses
// one float per byte size from its standard output.
func (e *SimulatorExecutor) RunScenario(a *Artifact, sc Scenario, iterations int, thresholds []float64) ([]float64, error) {
	if len(thresholds) != len(sc.ByteSizes) {
		return nil, &SimulationError{Benchmark: sc.Benchmark, Reason: fmt.Sprintf("%d thresholds for %d byte sizes", len(thresholds), len(sc.ByteSizes))}
	}
	defer removeScratch(a.Dir)

	args := e.Args(a, sc, iterations, thresholds)
	cmd := exec.Command(e.cfg.Binary, args...)
	cmd.Dir = a.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logrus.Debugf("simulating %s", sc)
	runErr := cmd.Run()
	if err := e.log.Append("Command: %s %s\nStd_err: \n%s\n", filepath.Base(e.cfg.Binary), strings.Join(args, " "), stderr.String()); err != nil {
		logrus.Warnf("simulator log: %v", err)
	}
	if runErr != nil {
		return nil, &SimulationError{Benchmark: sc.Benchmark, ExitCode: exitStatus(runErr), Stderr: stderr.String(), Reason: runErr.Error()}
	}

	values, err := ParseResults(stdout.String(), len(sc.ByteSizes))
	if err != nil {
		return nil, &SimulationError{Benchmark: sc.Benchmark, Stderr: stderr.String(), Reason: err.Error()}
	}
	return values, nil
}

// ParseResults parses whitespace-separated floats and requires exactly want of them.
func ParseResults(out string, want int) ([]float64, error) {
	tokens := strings.Fields(out)
	if len(tokens) != want {
		return nil, fmt.Errorf("expected %d results, got %d in %q", want, len(tokens), strings.TrimSpace(out))
	}
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func removeScratch(dir string) {
	files, err := filepath.Glob(filepath.Join(dir, scratchPattern))
	if err != nil {
		return
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			logrus.Warnf("removing %s: %v", f, err)
		}
	}
}
