package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/mediaidle/internal/errors"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "helper.grace_period")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return errors.ErrInvalidConfig
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateHelper()...)
	errs = append(errs, c.validateProvider()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// validateHelper validates the HelperConfig
func (c *Config) validateHelper() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Helper.Program) == "" {
		errs = append(errs, ValidationError{
			Field:   "helper.program",
			Value:   c.Helper.Program,
			Message: "must not be empty",
		})
	}

	if c.Helper.GracePeriod < 0 {
		errs = append(errs, ValidationError{
			Field:   "helper.grace_period",
			Value:   c.Helper.GracePeriod,
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateProvider validates the ProviderConfig
func (c *Config) validateProvider() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Provider.Command) == "" {
		errs = append(errs, ValidationError{
			Field:   "provider.command",
			Value:   c.Provider.Command,
			Message: "must not be empty",
		})
	}

	if c.Provider.ConnectTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "provider.connect_timeout",
			Value:   c.Provider.ConnectTimeout,
			Message: "must be positive",
		})
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errs
}
