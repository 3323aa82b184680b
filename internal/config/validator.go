package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "director.timeout_seconds")
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDirector()...)
	errors = append(errors, c.validateLoader()...)
	errors = append(errors, c.validateInstall()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateDirector validates the DirectorConfig
func (c *Config) validateDirector() []ValidationError {
	var errors []ValidationError

	if c.Director.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "director.timeout_seconds",
			Value:   c.Director.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	const maxTimeoutSeconds = 24 * 60 * 60
	if c.Director.TimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "director.timeout_seconds",
			Value:   c.Director.TimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d (24 hours)", maxTimeoutSeconds),
		})
	}

	if c.Director.Parallelism < 0 {
		errors = append(errors, ValidationError{
			Field:   "director.parallelism",
			Value:   c.Director.Parallelism,
			Message: "must be non-negative (0 = detect)",
		})
	}

	errors = append(errors, validatePath("director.config_dir", c.Director.ConfigDir)...)
	errors = append(errors, validatePath("director.mods_dir", c.Director.ModsDir)...)

	return errors
}

// validateLoader validates the LoaderConfig
func (c *Config) validateLoader() []ValidationError {
	var errors []ValidationError

	errors = append(errors, validatePatterns("loader.include", c.Loader.Include)...)
	errors = append(errors, validatePatterns("loader.exclude", c.Loader.Exclude)...)

	return errors
}

func validatePatterns(field string, patterns []string) []ValidationError {
	var errors []ValidationError
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Value:   p,
				Message: "pattern cannot be empty",
			})
			continue
		}
		if _, err := glob.Compile(p); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Value:   p,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}
	return errors
}

// validateInstall validates the InstallConfig
func (c *Config) validateInstall() []ValidationError {
	var errors []ValidationError

	if c.Install.HTTPTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "install.http_timeout_seconds",
			Value:   c.Install.HTTPTimeoutSeconds,
			Message: "must be non-negative (0 = no limit)",
		})
	}

	if strings.ContainsAny(c.Install.UserAgent, "\r\n") {
		errors = append(errors, ValidationError{
			Field:   "install.user_agent",
			Value:   c.Install.UserAgent,
			Message: "cannot contain line breaks",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	errors = append(errors, validatePath("logging.dir", c.Logging.Dir)...)

	return errors
}

// validatePath rejects paths no filesystem accepts. Empty means default.
func validatePath(field, path string) []ValidationError {
	var errors []ValidationError
	if path == "" {
		return errors
	}

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	// Reasonable path length limit (most filesystems have limits around 4096)
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
