// Package cli implements the scriptgraph command line: compile, build,
// print and watch.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"scriptgraph/internal/build"
	"scriptgraph/internal/config"
)

// CLIResult is the outcome of one invocation.
type CLIResult struct {
	ExitCode int

	// Report is set by the commands that build.
	Report *build.Report
}

// Run executes the command line args (excluding argv[0]) with the process
// standard streams.
func Run(ctx context.Context, args []string) (CLIResult, error) {
	return RunIO(ctx, args, os.Stdout, os.Stderr)
}

// RunIO is Run with explicit output streams.
func RunIO(ctx context.Context, args []string, stdout, stderr io.Writer) (CLIResult, error) {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && !hasExitCode(err) {
		// Anything cobra reports on its own is a usage problem.
		err = &InvocationError{ExitCode: ExitInvalidInvocation, Message: err.Error()}
	}
	return CLIResult{ExitCode: ExitCode(err), Report: a.report}, err
}

// app holds what the commands of one invocation share.
type app struct {
	stdout io.Writer
	stderr io.Writer

	workDir    string
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
	report *build.Report
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptgraph",
		Short:         "Compile visual script graphs to Lua",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	a.addGlobalFlags(root.PersistentFlags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInvocationf("%v", err)
	})

	root.AddCommand(
		a.buildCommand(),
		a.compileCommand(),
		a.printCommand(),
		a.watchCommand(),
	)
	return root
}

func (a *app) addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&a.workDir, "workdir", "C", ".", "directory to run in")
	fs.StringVarP(&a.configPath, "config", "c", "", "config file (default: scriptgraph.toml or scriptgraph.yaml, searched upwards)")
	fs.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
}

// setup resolves the working directory, loads the config and builds the
// logger. Flags win over the file.
func (a *app) setup() error {
	wd, err := filepath.Abs(a.workDir)
	if err != nil {
		return invalidInvocationf("--workdir: %v", err)
	}
	info, err := os.Stat(wd)
	if err != nil || !info.IsDir() {
		return invalidInvocationf("--workdir %q is not a directory", a.workDir)
	}
	a.workDir = wd

	cfgPath := a.configPath
	if cfgPath != "" {
		cfgPath = a.abs(cfgPath)
	}
	cfg, err := config.Resolve(wd, cfgPath)
	if err != nil {
		return configError(err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return invalidInvocationf("%v", err)
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(a.stderr)
	return nil
}

// abs resolves a command-line path against the working directory.
func (a *app) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.workDir, p)
}

// baseDir is where config-relative paths and source patterns start.
func (a *app) baseDir() string { return a.cfg.BaseDir(a.workDir) }
