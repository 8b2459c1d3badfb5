package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/pkg/config"
	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/output"
	"github.com/sdejongh/diffnorris/pkg/storage"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <dir-a> <dir-b> [dir-c]",
		Short: "Compare two or three folders",
		Long: `Compare the contents of two or three folders and classify every entry
as same, changed, new, deleted, filtered or errored. Comparison is
read-only; nothing on disk is modified.

Exit codes: 0 when the folders are identical, 1 when differences were
found, 2 on errors or cancellation.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runDiff,
	}

	cmd.Flags().BoolVar(&diffFlags.Shallow, "shallow", false, "compare by size and mtime only, without reading content")
	cmd.Flags().Int64Var(&diffFlags.TimeResolution, "time-resolution", 100, "shallow-mode mtime tolerance in nanoseconds (-1 ignores timestamps)")
	cmd.Flags().BoolVar(&diffFlags.IgnoreSymlinks, "ignore-symlinks", false, "exclude symlinks from the comparison without following them")
	cmd.Flags().BoolVar(&diffFlags.ApplyTextFilters, "apply-text-filters", false, "apply configured text filters before content comparison")
	cmd.Flags().BoolVar(&diffFlags.IgnoreBlankLines, "ignore-blank-lines", false, "ignore blank lines and line-ending differences")
	cmd.Flags().BoolVar(&diffFlags.IgnoreCase, "ignore-case", false, "merge entry names case-insensitively")
	cmd.Flags().BoolVar(&diffFlags.NormalizeEncoding, "normalize-encoding", false, "merge composed and decomposed Unicode spellings of entry names")
	cmd.Flags().StringSliceVar(&diffFlags.Exclude, "exclude", nil, "extra glob patterns to exclude")
	cmd.Flags().StringVar(&diffFlags.IgnoreFile, "ignore-file", "", "gitignore-style file with additional exclude rules")
	cmd.Flags().StringSliceVar(&diffFlags.Statuses, "status", nil, "statuses to show: same, changed, new, deleted, error, empty, filtered, cancelled")
	cmd.Flags().IntVar(&diffFlags.Reference, "reference", 0, "side considered local for new/deleted labeling (0-based)")
	cmd.Flags().IntVar(&diffFlags.Workers, "workers", 0, "maximum concurrent subtree comparisons (0 = from config)")
	cmd.Flags().StringVarP(&diffFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().BoolVar(&diffFlags.NoProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roots, err := validateDiffRoots(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cmd, cfg)

	if diffFlags.Reference < 0 || diffFlags.Reference >= len(roots) {
		return fmt.Errorf("reference side %d out of range for %d roots", diffFlags.Reference, len(roots))
	}

	filterSet, err := buildFilterSet(cfg)
	if err != nil {
		return fmt.Errorf("failed to build filters: %w", err)
	}

	statuses, err := visibleStatuses(cfg)
	if err != nil {
		return err
	}

	sides := make([]storage.Backend, 0, len(roots))
	defer func() {
		for _, side := range sides {
			side.Close()
		}
	}()
	for _, root := range roots {
		side, err := storage.NewLocal(root)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", root, err)
		}
		sides = append(sides, side)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	formatter := buildFormatter(cfg)

	comparator, err := tree.New(sides, cfg.Policy(), filterSet,
		tree.WithLogger(logger),
		tree.WithMaxWorkers(cfg.Performance.MaxWorkers),
		tree.WithReferenceSide(diffFlags.Reference),
		tree.WithProgress(func(event tree.Event) {
			formatter.Progress(event)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create comparator: %w", err)
	}

	if !cfg.Output.Quiet {
		formatter.Start(os.Stdout, roots)
	}

	report, err := comparator.Run(ctx)
	if err != nil {
		formatter.Error(err)
		return err
	}

	view := tree.FilterView(report.Root, statuses)
	if !cfg.Output.Quiet {
		if err := formatter.Complete(report, view); err != nil {
			return err
		}
	}

	os.Exit(report.ExitCode())
	return nil
}

// buildFilterSet compiles the configured filters plus any ad-hoc excludes
// and ignore file given on the command line
func buildFilterSet(cfg *config.Config) (*filter.Set, error) {
	rules := cfg.FilterRules()
	for _, pattern := range diffFlags.Exclude {
		rules = append(rules, filter.FilenameRule("command-line exclude", pattern))
	}

	set, err := filter.NewSet(rules)
	if err != nil {
		return nil, err
	}

	if diffFlags.IgnoreFile != "" {
		ignores, err := filter.LoadIgnoreFile(diffFlags.IgnoreFile)
		if err != nil {
			return nil, err
		}
		set = set.WithIgnoreList(ignores)
	}

	return set, nil
}

func buildLogger(cfg *config.Config) (logging.Logger, error) {
	if !cfg.Logging.Enabled || cfg.Logging.File == "" {
		return logging.NewNullLogger(), nil
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if globalFlags.Verbose {
		level = logging.DebugLevel
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:   cfg.Logging.File,
		Format: logging.Format(cfg.Logging.Format),
		Level:  level,
	})
}

func buildFormatter(cfg *config.Config) output.Formatter {
	if cfg.Output.Format == "json" {
		return output.NewJSONFormatter()
	}
	if cfg.Output.Progress && !diffFlags.NoProgress && !cfg.Output.Quiet {
		return output.NewProgressFormatter()
	}
	return output.NewHumanFormatter()
}
