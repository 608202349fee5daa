// Package logging configures the zerowrap logger and names the log fields
// specific to overview publishing.
package logging

import (
	"fmt"
	"io"

	"github.com/bnema/zerowrap"

	"github.com/jupyter/overviews/internal/config"
)

// Log fields not covered by zerowrap's common set.
const (
	FieldTarget      = "target"
	FieldDestination = "destination"
	FieldProvider    = "provider"
)

// Setup builds the application logger from the configuration.
// The returned cleanup closes the log file, if any.
func Setup(cfg config.LoggingConfig, stderr io.Writer) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: stderr,
	}

	if !cfg.File.Enabled {
		return zerowrap.New(logConfig), func() {}, nil
	}

	log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
		Enabled:    true,
		Path:       cfg.File.Path,
		MaxSize:    cfg.File.MaxSize,
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAge,
		Compress:   true,
	})
	if err != nil {
		return zerowrap.New(logConfig), func() {}, fmt.Errorf("failed to create logger with file: %w", err)
	}

	log.Debug().
		Str("log_file", cfg.File.Path).
		Str("level", log.GetLevel().String()).
		Msg("file logging initialized")

	return log, cleanup, nil
}
