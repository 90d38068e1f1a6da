package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/config"
	"github.com/marmos91/larder/pkg/storage"
)

// ============================================================================
// init
// ============================================================================

func (a *app) runInit(args []string) error {
	fs := a.subcommand("init", "[--force] [--path file]")
	force := fs.BoolP("force", "f", false, "overwrite an existing config file")
	target := fs.StringP("path", "p", "", "write to this file instead of the default location")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	// The global --config flag names the file too
	configPath := *target
	if configPath == "" {
		configPath = a.configPath
	}

	if configPath == "" {
		written, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		configPath = written
	} else if err := config.InitConfigToPath(configPath, *force); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprint(a.stdout, "Configuration written to ")
	fmt.Fprintln(a.stdout, configPath)
	return nil
}

// ============================================================================
// store / retrieve / remove / resolve
// ============================================================================

func (a *app) runStore(ctx context.Context, args []string) error {
	fs := a.subcommand("store", "<path> <content|->")
	rest, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}

	raw, content := rest[0], rest[1]
	if content == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("failed to read content from stdin: %w", err)
		}
		content = string(data)
	}

	return a.withStorage(ctx, func(ctx context.Context, _ *config.Config, st *storage.Storage) error {
		if err := st.Store(ctx, raw, content); err != nil {
			return err
		}
		logger.Info("Stored %s", st.Resolve(raw))
		return nil
	})
}

func (a *app) runRetrieve(ctx context.Context, args []string) error {
	fs := a.subcommand("retrieve", "<path>")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	return a.withStorage(ctx, func(ctx context.Context, _ *config.Config, st *storage.Storage) error {
		content, err := st.Retrieve(ctx, rest[0])
		if err != nil {
			return err
		}
		_, err = io.WriteString(a.stdout, content)
		return err
	})
}

func (a *app) runRemove(ctx context.Context, args []string) error {
	fs := a.subcommand("remove", "<path>")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	return a.withStorage(ctx, func(ctx context.Context, _ *config.Config, st *storage.Storage) error {
		if err := st.Remove(ctx, rest[0]); err != nil {
			return err
		}
		logger.Info("Removed %s", st.Resolve(rest[0]))
		return nil
	})
}

// runResolve only needs the base path, so no backend is opened.
func (a *app) runResolve(_ context.Context, args []string) error {
	fs := a.subcommand("resolve", "<path>")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	cfg, closer, err := a.loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	st := storage.New(storage.Unsupported{}, storage.WithBasePath(cfg.Storage.BasePath))
	fmt.Fprintln(a.stdout, st.Resolve(rest[0]))
	return nil
}

// ============================================================================
// tasks / generate
// ============================================================================

func (a *app) runTasks(_ context.Context, args []string) error {
	fs := a.subcommand("tasks", "")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	cfg, closer, err := a.loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Listing never touches storage
	reg, err := config.CreateTasks(cfg.Tasks, storage.New(storage.Unsupported{}))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)
	for _, name := range reg.Names() {
		t, err := reg.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", bold.Sprint(name), t.Description())
	}
	return tw.Flush()
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	fs := a.subcommand("generate", "<task>... | --all")
	all := fs.BoolP("all", "a", false, "run every configured task")
	if err := fs.Parse(args); err != nil {
		return usagef("generate: %v", err)
	}

	names := fs.Args()
	switch {
	case *all && len(names) > 0:
		return usagef("generate: --all cannot be combined with task names")
	case !*all && len(names) == 0:
		return usagef("generate: name at least one task or pass --all")
	}

	return a.withStorage(ctx, func(ctx context.Context, cfg *config.Config, st *storage.Storage) error {
		reg, err := config.CreateTasks(cfg.Tasks, st)
		if err != nil {
			return err
		}

		if *all {
			logger.Info("Running %d task(s) with concurrency %d", reg.Count(), cfg.Runner.Concurrency)
			return reg.RunAll(ctx, cfg.Runner.Concurrency)
		}

		// Validate every name before running anything
		for _, name := range names {
			if _, err := reg.Get(name); err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(reg.Names(), ", "))
			}
		}
		for _, name := range names {
			if err := reg.Run(ctx, name); err != nil {
				return fmt.Errorf("task %s: %w", name, err)
			}
		}
		return nil
	})
}
