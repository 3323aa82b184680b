// Package platform provides the host capabilities the director runs on.
package platform

import (
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/moddirector/internal/director"
	"github.com/Iron-Ham/moddirector/internal/logging"
)

// CLIConfig configures a CLI platform.
type CLIConfig struct {
	// Name identifies the host in diagnostics (default: "cli").
	Name string
	// ConfigDir holds mod descriptor files.
	ConfigDir string
	// ModsDir is where mods are installed.
	ModsDir string
	Logger  *logging.Logger
}

// CLI is the platform used by the moddirector command.
type CLI struct {
	name      string
	configDir string
	modsDir   string
	logger    *logging.Logger
}

var _ director.Platform = (*CLI)(nil)

// NewCLI creates a CLI platform. Directories are not touched until
// Bootstrap runs.
func NewCLI(cfg CLIConfig) *CLI {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "cli"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &CLI{
		name:      name,
		configDir: cfg.ConfigDir,
		modsDir:   cfg.ModsDir,
		logger:    logger,
	}
}

// Name returns the platform name.
func (c *CLI) Name() string { return c.name }

// Logger returns the platform logger.
func (c *CLI) Logger() director.Logger { return c.logger }

// ConfigurationDirectory returns the descriptor directory.
func (c *CLI) ConfigurationDirectory() string { return c.configDir }

// ModsDirectory returns the install directory.
func (c *CLI) ModsDirectory() string { return c.modsDir }

// Bootstrap creates the mods directory. The descriptor directory is left
// alone: a missing one means there is nothing to install.
func (c *CLI) Bootstrap() error {
	if c.modsDir == "" {
		return fmt.Errorf("platform %s: mods directory is not configured", c.name)
	}
	if err := os.MkdirAll(c.modsDir, 0o755); err != nil {
		return fmt.Errorf("platform %s: create mods directory: %w", c.name, err)
	}
	c.logger.Debug("platform bootstrapped", "platform", c.name, "config_dir", c.configDir, "mods_dir", c.modsDir)
	return nil
}
