package config

import (
	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Comparison  ComparisonConfig  `yaml:"comparison"`
	Filters     FiltersConfig     `yaml:"filters"`
	View        ViewConfig        `yaml:"view"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ComparisonConfig holds the equality policy settings
type ComparisonConfig struct {
	Shallow           bool  `yaml:"shallow"`
	TimeResolutionNs  int64 `yaml:"time_resolution_ns"`
	IgnoreSymlinks    bool  `yaml:"ignore_symlinks"`
	ApplyTextFilters  bool  `yaml:"apply_text_filters"`
	IgnoreBlankLines  bool  `yaml:"ignore_blank_lines"`
	IgnoreCase        bool  `yaml:"ignore_case"`
	NormalizeEncoding bool  `yaml:"normalize_encoding"`
}

// FilterRuleConfig is one named filter with its pattern
type FilterRuleConfig struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Pattern string `yaml:"pattern"`
}

// FiltersConfig holds the ordered filename and text filter lists
type FiltersConfig struct {
	Filename []FilterRuleConfig `yaml:"filename"`
	Text     []FilterRuleConfig `yaml:"text"`
}

// ViewConfig selects which statuses are surfaced to the caller
type ViewConfig struct {
	Statuses []string `yaml:"statuses"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int   `yaml:"max_workers"`
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress while scanning
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = disabled)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Comparison: ComparisonConfig{
			Shallow:          false,
			TimeResolutionNs: compare.DefaultTimeResolution,
			IgnoreSymlinks:   false,
			ApplyTextFilters: false,
			IgnoreBlankLines: false,
		},
		Filters: FiltersConfig{
			Filename: []FilterRuleConfig{
				{Name: "Backups", Enabled: true, Pattern: "#*# .#* ~* *~ *.{orig,bak,swp}"},
				{Name: "OS-Specific Metadata", Enabled: true, Pattern: ".DS_Store ._* .Spotlight-V100 .Trashes Thumbs.db Desktop.ini"},
				{Name: "Version Control", Enabled: false, Pattern: ".git .svn .hg .bzr"},
				{Name: "Binaries", Enabled: false, Pattern: "*.{pyc,a,obj,o,so,la,lib,dll,exe}"},
				{Name: "Media", Enabled: false, Pattern: "*.{jpg,gif,png,bmp,wav,mp3,ogg,flac,avi,mpg,xcf,xpm}"},
			},
			Text: []FilterRuleConfig{
				{Name: "CVS/SVN Keywords", Enabled: false, Pattern: `\$\w+(:[^\n$]+)?\$`},
				{Name: "C++ Comment", Enabled: false, Pattern: `//.*`},
				{Name: "C Comment", Enabled: false, Pattern: `/\*.*?\*/`},
				{Name: "All Whitespace", Enabled: false, Pattern: `[ \t\r\f\v]*`},
				{Name: "Leading Whitespace", Enabled: false, Pattern: `^[ \t\r\f\v]*`},
				{Name: "Trailing Whitespace", Enabled: false, Pattern: `[ \t\r\f\v]*$`},
				{Name: "Script Comment", Enabled: false, Pattern: `#.*`},
			},
		},
		View: ViewConfig{
			Statuses: []string{"same", "changed", "new", "deleted", "error", "empty", "cancelled"},
		},
		Performance: PerformanceConfig{
			MaxWorkers:     5,
			BufferSize:     65536,
			BandwidthLimit: 0,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Format:  "json",
			Level:   "info",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return err
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if _, err := c.Statuses(); err != nil {
		return &models.ValidationError{
			Field:   "view.statuses",
			Message: err.Error(),
		}
	}

	// Compiling the filter set surfaces malformed patterns at load time
	if _, err := c.FilterSet(); err != nil {
		return err
	}

	return nil
}

// Policy converts the comparison section into an engine policy
func (c *Config) Policy() compare.Policy {
	return compare.Policy{
		Shallow:           c.Comparison.Shallow,
		TimeResolution:    c.Comparison.TimeResolutionNs,
		IgnoreSymlinks:    c.Comparison.IgnoreSymlinks,
		ApplyTextFilters:  c.Comparison.ApplyTextFilters,
		IgnoreBlankLines:  c.Comparison.IgnoreBlankLines,
		IgnoreCase:        c.Comparison.IgnoreCase,
		NormalizeEncoding: c.Comparison.NormalizeEncoding,
		BufferSize:        c.Performance.BufferSize,
		BandwidthLimit:    c.Performance.BandwidthLimit,
	}
}

// FilterRules converts the filter lists into engine rules, preserving
// their configured order
func (c *Config) FilterRules() []filter.Rule {
	rules := make([]filter.Rule, 0, len(c.Filters.Filename)+len(c.Filters.Text))
	for _, fc := range c.Filters.Filename {
		rules = append(rules, filter.Rule{
			Name: fc.Name, Enabled: fc.Enabled, Pattern: fc.Pattern, Kind: filter.KindFilename,
		})
	}
	for _, tc := range c.Filters.Text {
		rules = append(rules, filter.Rule{
			Name: tc.Name, Enabled: tc.Enabled, Pattern: tc.Pattern, Kind: filter.KindText,
		})
	}
	return rules
}

// FilterSet compiles the configured filters
func (c *Config) FilterSet() (*filter.Set, error) {
	return filter.NewSet(c.FilterRules())
}

// Statuses parses the visible status list
func (c *Config) Statuses() (models.StatusSet, error) {
	set := models.NewStatusSet()
	for _, s := range c.View.Statuses {
		status, err := models.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		set[status] = true
	}
	return set, nil
}
