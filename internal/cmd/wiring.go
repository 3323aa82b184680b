package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/moddirector/internal/config"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/Iron-Ham/moddirector/internal/modconfig"
)

// newLogger builds the director logger from the logging config. When file
// logging is disabled, JSON lines go to stderr.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NewWriterLogger(stderr, cfg.Level), nil
	}
	logger, err := logging.NewLoggerWithRotation(cfg.ResolveDir(), cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

func newLoader(cfg config.LoaderConfig, logger *logging.Logger) (*modconfig.Loader, error) {
	return modconfig.NewLoader(modconfig.Options{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
		Logger:  logger,
	})
}
