package calib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Relative paths inside a trial workspace agreed with the platform generator.
const (
	NodeConfigFile     = "node_config.json"
	TopologyConfigFile = "topology.json"
	generatorSubdir    = "generator"
)

// Artifact is a compiled platform owned by one trial.
type Artifact struct {
	Dir    string // trial workspace
	Module string // loadable platform module inside Dir
	// Flags are the routed simulator flags the platform is run with.
	Flags []string
	keep  bool
}

// Release removes the trial workspace unless it is kept for debugging.
// Calling Release more than once is harmless.
func (a *Artifact) Release() error {
	if a == nil || a.keep || a.Dir == "" {
		return nil
	}
	dir := a.Dir
	a.Dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing trial workspace %s: %w", dir, err)
	}
	return nil
}

// Compiler turns routed node/topology configurations into a loadable platform.
type Compiler interface {
	Compile(cfg *RoutedConfig) (*Artifact, error)
}

// WithPlatform compiles a platform, hands it to fn and releases it on every
// path, including when fn fails.
func WithPlatform(c Compiler, cfg *RoutedConfig, fn func(*Artifact) error) (err error) {
	artifact, err := c.Compile(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := artifact.Release(); rerr != nil {
			logrus.Warnf("%v", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()
	return fn(artifact)
}

// GeneratorConfig configures the external platform generator.
type GeneratorConfig struct {
	// SourceDir is copied into every workspace so that concurrent trials
	// never share generated sources. Optional.
	SourceDir string
	// Command is the generator invocation; the node and topology config
	// paths are appended. Relative arguments resolve inside the workspace
	// copy of SourceDir when it exists.
	Command []string
	// PlatformName becomes the topology "name" and names the module file.
	PlatformName string
	// WorkRoot holds the per-trial workspaces (os.TempDir when empty).
	WorkRoot string
	// SimpleCompute switches the topology to simple compute nodes.
	SimpleCompute bool
	// KeepWorkspaces retains workspaces after the trial.
	KeepWorkspaces bool
}

// GeneratorCompiler compiles platforms by running the external generator in
// a fresh workspace per trial.
type GeneratorCompiler struct {
	cfg GeneratorConfig
	log *TrialLog
}

// NewGeneratorCompiler creates a compiler that appends generator output to log.
func NewGeneratorCompiler(cfg GeneratorConfig, log *TrialLog) (*GeneratorCompiler, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("platform generator command is empty")
	}
	if cfg.PlatformName == "" {
		return nil, fmt.Errorf("platform name is empty")
	}
	return &GeneratorCompiler{cfg: cfg, log: log}, nil
}

// ModuleName returns the file name of the compiled platform module.
func (g *GeneratorCompiler) ModuleName() string {
	return g.cfg.PlatformName + ".so"
}

// Compile allocates a workspace, writes the configurations, runs the
// generator and checks that the module was produced. Any failure removes the
// workspace (unless kept) and is returned as a *CompilationError.
func (g *GeneratorCompiler) Compile(cfg *RoutedConfig) (*Artifact, error) {
	dir, err := os.MkdirTemp(g.cfg.WorkRoot, "netcal-trial-*")
	if err != nil {
		return nil, &CompilationError{Reason: fmt.Sprintf("creating workspace: %v", err)}
	}
	logrus.Debugf("Creating temporary directory: %s", dir)
	artifact := &Artifact{Dir: dir, keep: g.cfg.KeepWorkspaces}
	module, err := g.build(dir, cfg)
	if err != nil {
		_ = artifact.Release()
		return nil, err
	}
	artifact.Module = module
	return artifact, nil
}

func (g *GeneratorCompiler) build(dir string, cfg *RoutedConfig) (string, error) {
	genDir := dir
	if g.cfg.SourceDir != "" {
		genDir = filepath.Join(dir, generatorSubdir)
		if err := os.CopyFS(genDir, os.DirFS(g.cfg.SourceDir)); err != nil {
			return "", &CompilationError{Dir: dir, Reason: fmt.Sprintf("copying generator sources: %v", err)}
		}
	}

	topology := copyConfig(cfg.Topology)
	topology["name"] = g.cfg.PlatformName
	if g.cfg.SimpleCompute {
		topology["node_generator_cb"] = "simple_node"
	}
	nodePath := filepath.Join(dir, NodeConfigFile)
	topologyPath := filepath.Join(dir, TopologyConfigFile)
	if err := writeJSON(nodePath, cfg.Node); err != nil {
		return "", &CompilationError{Dir: dir, Reason: err.Error()}
	}
	if err := writeJSON(topologyPath, topology); err != nil {
		return "", &CompilationError{Dir: dir, Reason: err.Error()}
	}

	args := make([]string, 0, len(g.cfg.Command)+1)
	for _, a := range g.cfg.Command[1:] {
		if !filepath.IsAbs(a) {
			if _, statErr := os.Stat(filepath.Join(genDir, a)); statErr == nil {
				a = filepath.Join(genDir, a)
			}
		}
		args = append(args, a)
	}
	args = append(args, nodePath, topologyPath)

	cmd := exec.Command(g.cfg.Command[0], args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	exitCode := exitStatus(runErr)

	if logErr := g.log.Append("Std_err: %s\nExit Code: %d\n----------------\n", stderr.String(), exitCode); logErr != nil {
		logrus.Warnf("compile log: %v", logErr)
	}
	if runErr != nil {
		return "", &CompilationError{Dir: dir, ExitCode: exitCode, Stderr: stderr.String(), Reason: runErr.Error()}
	}

	module := filepath.Join(dir, g.ModuleName())
	if _, statErr := os.Stat(module); statErr != nil {
		return "", &CompilationError{Dir: dir, Stderr: stderr.String(), Reason: fmt.Sprintf("platform module %s missing", g.ModuleName())}
	}
	return module, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadTemplate reads a JSON configuration template.
func LoadTemplate(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	var tmpl map[string]any
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}
	return tmpl, nil
}

// exitStatus returns the process exit code carried by err, -1 when the
// process could not be started, and 0 for a nil error.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
