package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete moddirector configuration
type Config struct {
	Director DirectorConfig `mapstructure:"director"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Install  InstallConfig  `mapstructure:"install"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DirectorConfig controls activation
type DirectorConfig struct {
	// ConfigDir is the directory mod descriptor files are read from.
	// If empty, defaults to "mods.d" under the user config directory.
	ConfigDir string `mapstructure:"config_dir"`
	// ModsDir is where mods are installed (default: "mods", relative to the working directory)
	ModsDir string `mapstructure:"mods_dir"`
	// TimeoutSeconds bounds how long activation waits for install tasks (default: 300).
	// Tasks still running after the bound are not cancelled.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// Parallelism overrides the detected CPU count used to size the worker pool.
	// The pool gets half of it, at least one worker. 0 means detect.
	Parallelism int `mapstructure:"parallelism"`
}

// LoaderConfig controls which descriptor files are read
type LoaderConfig struct {
	// Include lists file name glob patterns (default: *.yaml, *.yml, *.toml, *.json)
	Include []string `mapstructure:"include"`
	// Exclude lists file name glob patterns that win over Include
	Exclude []string `mapstructure:"exclude"`
}

// InstallConfig controls how mods are fetched
type InstallConfig struct {
	// HTTPTimeoutSeconds bounds a single download (default: 120, 0 = no limit)
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
	// UserAgent is sent with HTTP requests (default: "moddirector")
	UserAgent string `mapstructure:"user_agent"`
}

// LoggingConfig controls director logging
type LoggingConfig struct {
	// Enabled controls whether logs are written to a file (default: true).
	// When false, logs go to stderr.
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the log directory. If empty, defaults to "logs" under the user config directory.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Director: DirectorConfig{
			ConfigDir:      "",
			ModsDir:        "mods",
			TimeoutSeconds: 300,
			Parallelism:    0,
		},
		Loader: LoaderConfig{
			Include: []string{"*.yaml", "*.yml", "*.toml", "*.json"},
			Exclude: []string{},
		},
		Install: InstallConfig{
			HTTPTimeoutSeconds: 120,
			UserAgent:          "moddirector",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// Timeout returns the activation wait bound as a time.Duration
func (c *DirectorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveConfigDir returns the descriptor directory, applying the default
func (c *DirectorConfig) ResolveConfigDir() string {
	if c.ConfigDir != "" {
		return expandHome(c.ConfigDir)
	}
	return filepath.Join(ConfigDir(), "mods.d")
}

// ResolveModsDir returns the install directory, applying the default
func (c *DirectorConfig) ResolveModsDir() string {
	if c.ModsDir != "" {
		return expandHome(c.ModsDir)
	}
	return "mods"
}

// HTTPTimeout returns the per-download bound as a time.Duration
func (c *InstallConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ResolveDir returns the log directory, applying the default
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir != "" {
		return expandHome(c.Dir)
	}
	return filepath.Join(ConfigDir(), "logs")
}

// expandHome replaces a leading "~/" with the user's home directory
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Director defaults
	viper.SetDefault("director.config_dir", defaults.Director.ConfigDir)
	viper.SetDefault("director.mods_dir", defaults.Director.ModsDir)
	viper.SetDefault("director.timeout_seconds", defaults.Director.TimeoutSeconds)
	viper.SetDefault("director.parallelism", defaults.Director.Parallelism)

	// Loader defaults
	viper.SetDefault("loader.include", defaults.Loader.Include)
	viper.SetDefault("loader.exclude", defaults.Loader.Exclude)

	// Install defaults
	viper.SetDefault("install.http_timeout_seconds", defaults.Install.HTTPTimeoutSeconds)
	viper.SetDefault("install.user_agent", defaults.Install.UserAgent)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "moddirector")
	}
	// Fall back to ~/.config/moddirector
	home, err := os.UserHomeDir()
	if err != nil {
		return ".moddirector"
	}
	return filepath.Join(home, ".config", "moddirector")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
