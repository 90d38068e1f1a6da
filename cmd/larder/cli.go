package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/config"
	"github.com/marmos91/larder/pkg/metrics"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	exitOK              = 0
	exitError           = 1
	exitUsage           = 2
	exitPathNotExist    = 3
	exitPathIsDirectory = 4
)

const usage = `Usage: larder [flags] <command> [args]

Commands:
  init [--force] [--path file]   write a sample config file
  store <path> <content|->       store content ("-" reads stdin)
  retrieve <path>                print the content stored at path
  remove <path>                  remove path and everything below it
  resolve <path>                 print the path raw input resolves to
  generate <task>... | --all     run generate tasks
  tasks                          list configured tasks

Flags:
`

// usageError marks errors caused by bad invocation.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// app holds the streams and global flags shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags      *pflag.FlagSet
	configPath string
}

// run parses args, executes a command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	flags := pflag.NewFlagSet("larder", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/larder/config.yaml)")
	flags.StringP("log-level", "l", "", "log level: DEBUG, INFO, WARN, ERROR")
	flags.String("log-format", "", "log format: text, json")
	flags.String("log-output", "", "log output: stdout, stderr or a file path")
	flags.String("backend", "", "storage backend: memory, filesystem, badger, s3, redis")
	flags.String("base-path", "", "base path relative secret paths resolve under")
	flags.Int("concurrency", 0, "number of generate tasks run at once")
	flags.Duration("timeout", 0, "overall timeout for a command")
	flags.String("metrics", "", "write Prometheus metrics to this file when the command finishes")
	noColor := flags.Bool("no-color", false, "disable coloured output")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	a.flags = flags

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *noColor {
		color.NoColor = true
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return exitUsage
	}

	err := a.dispatch(ctx, rest[0], rest[1:])
	if err == nil {
		return exitOK
	}

	a.printError(err)
	return exitCode(err)
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "init":
		return a.runInit(args)
	case "store":
		return a.runStore(ctx, args)
	case "retrieve":
		return a.runRetrieve(ctx, args)
	case "remove":
		return a.runRemove(ctx, args)
	case "resolve":
		return a.runResolve(ctx, args)
	case "generate":
		return a.runGenerate(ctx, args)
	case "tasks":
		return a.runTasks(ctx, args)
	case "help":
		a.flags.Usage()
		return nil
	default:
		return usagef("unknown command %q", command)
	}
}

// exitCode maps an error to the documented exit code.
func exitCode(err error) int {
	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		return exitUsage
	case storage.IsPathDoesNotExist(err):
		return exitPathNotExist
	case storage.IsPathIsDirectory(err):
		return exitPathIsDirectory
	default:
		return exitError
	}
}

func (a *app) printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(a.stderr, "error: ")
	fmt.Fprintln(a.stderr, err)

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintln(a.stderr, "run 'larder help' for usage")
	}
}

// loadConfig loads configuration with the global flags applied and
// configures logging from it.
//
// The returned closer releases the log file, if any.
func (a *app) loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.LoadWithFlags(a.configPath, a.flags)
	if err != nil {
		return nil, nil, err
	}

	closer, err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return nil, nil, err
	}

	// A metrics file named on the command line turns collection on
	if a.flags.Changed("metrics") {
		cfg.Metrics.Enabled = true
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	return cfg, closer, nil
}

// writeMetrics exports collected metrics, if enabled. Failures are logged
// and never change the command's outcome.
func writeMetrics(cfg *config.Config) {
	if !cfg.Metrics.Enabled || cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("%v", err)
		return
	}
	logger.Debug("metrics written to %s", cfg.Metrics.Textfile)
}

// withStorage loads configuration, opens storage, runs fn and releases
// everything. The runner timeout bounds fn.
func (a *app) withStorage(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, st *storage.Storage) error) error {
	cfg, logCloser, err := a.loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	defer writeMetrics(cfg)

	ctx, cancel := context.WithTimeout(ctx, cfg.Runner.Timeout)
	defer cancel()

	st, err := config.CreateStorage(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close storage: %v", err)
		}
	}()

	return fn(ctx, cfg, st)
}

// subcommand returns a flag set for a command, printing errors to stderr.
func (a *app) subcommand(name, synopsis string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: larder %s %s\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses a subcommand's flags and checks its positional argument
// count.
func parseArgs(fs *pflag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() != want {
		return nil, usagef("%s: expected %d argument(s), got %d (%s)",
			fs.Name(), want, fs.NArg(), strings.Join(fs.Args(), " "))
	}
	return fs.Args(), nil
}
