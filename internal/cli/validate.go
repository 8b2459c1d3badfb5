package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/internal/platform"
	"github.com/sdejongh/diffnorris/pkg/config"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// validateDiffRoots checks that every compared root is an existing
// directory and returns the normalized paths. Comparing a directory to
// itself is allowed; the result is trivially identical.
func validateDiffRoots(args []string) ([]string, error) {
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		if err := platform.ValidatePath(arg); err != nil {
			return nil, err
		}

		root := platform.NormalizePath(arg)
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path does not exist: %s", root)
			}
			return nil, fmt.Errorf("failed to access path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", root)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags.
// Only flags the user actually set take effect, so a config file keeps
// its say for everything else.
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("shallow") {
		cfg.Comparison.Shallow = diffFlags.Shallow
	}
	if flags.Changed("time-resolution") {
		cfg.Comparison.TimeResolutionNs = diffFlags.TimeResolution
	}
	if flags.Changed("ignore-symlinks") {
		cfg.Comparison.IgnoreSymlinks = diffFlags.IgnoreSymlinks
	}
	if flags.Changed("apply-text-filters") {
		cfg.Comparison.ApplyTextFilters = diffFlags.ApplyTextFilters
	}
	if flags.Changed("ignore-blank-lines") {
		cfg.Comparison.IgnoreBlankLines = diffFlags.IgnoreBlankLines
	}
	if flags.Changed("ignore-case") {
		cfg.Comparison.IgnoreCase = diffFlags.IgnoreCase
	}
	if flags.Changed("normalize-encoding") {
		cfg.Comparison.NormalizeEncoding = diffFlags.NormalizeEncoding
	}
	if flags.Changed("workers") && diffFlags.Workers >= 1 {
		cfg.Performance.MaxWorkers = diffFlags.Workers
	}
	if flags.Changed("output") {
		cfg.Output.Format = diffFlags.Output
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
		cfg.Output.Progress = false
	}
}

// visibleStatuses resolves the status visibility set from flags or config
func visibleStatuses(cfg *config.Config) (models.StatusSet, error) {
	if len(diffFlags.Statuses) == 0 {
		return cfg.Statuses()
	}

	set := models.NewStatusSet()
	for _, s := range diffFlags.Statuses {
		status, err := models.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		set[status] = true
	}
	return set, nil
}
