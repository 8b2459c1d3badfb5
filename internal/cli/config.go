package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify diffnorris configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Shallow comparison: %t\n", cfg.Comparison.Shallow)
			fmt.Printf("Time resolution: %dns\n", cfg.Comparison.TimeResolutionNs)
			fmt.Printf("Ignore symlinks: %t\n", cfg.Comparison.IgnoreSymlinks)
			fmt.Printf("Apply text filters: %t\n", cfg.Comparison.ApplyTextFilters)
			fmt.Printf("Ignore blank lines: %t\n", cfg.Comparison.IgnoreBlankLines)
			fmt.Printf("Max workers: %d\n", cfg.Performance.MaxWorkers)
			fmt.Printf("Output format: %s\n", cfg.Output.Format)
			fmt.Printf("Visible statuses: %v\n", cfg.View.Statuses)

			fmt.Printf("Filename filters:\n")
			for _, rule := range cfg.Filters.Filename {
				fmt.Printf("  [%s] %s: %s\n", enabledMark(rule.Enabled), rule.Name, rule.Pattern)
			}
			fmt.Printf("Text filters:\n")
			for _, rule := range cfg.Filters.Text {
				fmt.Printf("  [%s] %s: %s\n", enabledMark(rule.Enabled), rule.Name, rule.Pattern)
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}
}

func enabledMark(enabled bool) string {
	if enabled {
		return "x"
	}
	return " "
}
