package models

import (
	"fmt"
)

// ValidationError indicates an invalid configuration value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Message)
}

// ConfigError indicates a malformed filter pattern. It is raised when a
// filter set is built, never deferred to match time, and aborts the
// comparison setup.
type ConfigError struct {
	Filter  string
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter %q: bad pattern %q: %v", e.Filter, e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CompareError records an I/O failure localized to one entry of the tree.
// These never abort a comparison; they surface as Error status on the
// affected node while siblings keep being compared.
type CompareError struct {
	RelativePath string
	Side         int
	Err          error
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("%s (side %d): %v", e.RelativePath, e.Side, e.Err)
}

func (e *CompareError) Unwrap() error {
	return e.Err
}
