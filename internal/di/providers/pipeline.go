package providers

import (
	"github.com/samber/do/v2"

	"github.com/bandreports/bandreports/internal/categorize"
	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/fetch"
	"github.com/bandreports/bandreports/internal/filter"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/media/images"
	"github.com/bandreports/bandreports/internal/pipeline"
	"github.com/bandreports/bandreports/internal/render"
)

// ProvideFilter provides the score filter.
func ProvideFilter(i do.Injector) (*filter.Filter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return filter.New(filter.Options{
		ScoreColumn:      cfg.Filter.ScoreField,
		Target:           cfg.Filter.Target,
		EvaluationColumn: cfg.Filter.EvaluationColumn,
	}, log.Stage(pipeline.StageFilter)), nil
}

// FetcherHandle wraps the fetcher with shutdown capability.
type FetcherHandle struct {
	*fetch.Fetcher
}

// Shutdown implements do.Shutdownable.
func (h *FetcherHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideFetcher provides the image fetcher.
func ProvideFetcher(i do.Injector) (*FetcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*images.Storage](i)

	f := fetch.New(storage, fetch.Options{
		Timeout:           cfg.Fetch.Timeout,
		MaxBytes:          cfg.Fetch.MaxBytes,
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	}, log.Stage(pipeline.StageRender))

	return &FetcherHandle{Fetcher: f}, nil
}

// ProvideRenderer provides the PDF renderer.
func ProvideRenderer(i do.Injector) (*render.Renderer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return render.New(render.Options{
		Style:        cfg.Render.Style,
		FontPath:     cfg.Render.FontPath,
		FontBoldPath: cfg.Render.FontBoldPath,
	}, log.Stage(pipeline.StageRender))
}

// ProvideCategorizer provides the file categorizer, joined to the manifest when
// one is open.
func ProvideCategorizer(i do.Injector) (*categorize.Categorizer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handle := do.MustInvoke[*ManifestHandle](i)

	var m categorize.Manifest
	if handle.Store != nil {
		m = handle.Store
	}
	return categorize.New(cfg.Categorize.Field, m, log.Stage(pipeline.StageCategorize)), nil
}

// ProvidePipeline provides the stage runner. Component errors are returned
// rather than panicking so a bad font or an unopenable manifest exits cleanly.
func ProvidePipeline(i do.Injector) (*pipeline.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	f, err := do.Invoke[*filter.Filter](i)
	if err != nil {
		return nil, err
	}
	fetcher, err := do.Invoke[*FetcherHandle](i)
	if err != nil {
		return nil, err
	}
	renderer, err := do.Invoke[*render.Renderer](i)
	if err != nil {
		return nil, err
	}
	handle, err := do.Invoke[*ManifestHandle](i)
	if err != nil {
		return nil, err
	}
	categorizer, err := do.Invoke[*categorize.Categorizer](i)
	if err != nil {
		return nil, err
	}

	return pipeline.New(cfg, log, pipeline.Deps{
		Filter:      f,
		Fetcher:     fetcher.Fetcher,
		Renderer:    renderer,
		Categorizer: categorizer,
		Manifest:    handle.Store,
	}), nil
}
