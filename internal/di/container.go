// Package di wires the pipeline components together.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/di/providers"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/pipeline"
)

// NewContainer creates the DI container for an already loaded configuration.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideManifest)

	// Stages
	do.Provide(injector, providers.ProvideFilter)
	do.Provide(injector, providers.ProvideFetcher)
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideCategorizer)
	do.Provide(injector, providers.ProvidePipeline)

	return injector
}

// Bootstrap builds every component and returns the pipeline.
// Construction errors (unwritable directories, bad fonts, an unopenable
// manifest) surface here rather than midway through a stage.
func Bootstrap(injector *do.RootScope) (*pipeline.Pipeline, error) {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return nil, err
	}
	return do.Invoke[*pipeline.Pipeline](injector)
}
