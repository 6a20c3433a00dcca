// Package providers contains dependency injection providers for the pipeline.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		NoColor:     cfg.Logger.NoColor,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"records", cfg.Paths.Records,
		"output", cfg.Paths.Output,
		"style", cfg.Render.Style,
	)

	return log, nil
}
