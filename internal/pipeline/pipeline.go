// Package pipeline runs the filter, render and categorize stages in order.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bandreports/bandreports/internal/catalog"
	"github.com/bandreports/bandreports/internal/categorize"
	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/fetch"
	"github.com/bandreports/bandreports/internal/filter"
	"github.com/bandreports/bandreports/internal/group"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/manifest"
	"github.com/bandreports/bandreports/internal/record"
	"github.com/bandreports/bandreports/internal/render"
)

// Stage names, as logged and recorded in the manifest.
const (
	StageFilter     = "filter"
	StageRender     = "render"
	StageCategorize = "categorize"
)

// Deps are the components a pipeline drives. Manifest may be nil.
type Deps struct {
	Filter      *filter.Filter
	Fetcher     *fetch.Fetcher
	Renderer    *render.Renderer
	Categorizer *categorize.Categorizer
	Manifest    *manifest.Store
}

// Pipeline runs stages against one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *logger.Logger
	deps   Deps
}

// New creates a pipeline.
func New(cfg *config.Config, log *logger.Logger, deps Deps) *Pipeline {
	return &Pipeline{cfg: cfg, logger: log, deps: deps}
}

// Run executes filter, render and categorize. The first fatal error stops it.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, stage := range []func(context.Context) error{p.Filter, p.Render, p.Categorize} {
		if err := stage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Filter writes the records file from the source dataset.
func (p *Pipeline) Filter(ctx context.Context) error {
	log := p.logger.Stage(StageFilter)
	runID, err := p.startRun(ctx, StageFilter)
	if err != nil {
		return err
	}

	res, err := p.deps.Filter.Run(ctx, filter.Sources{
		Dataset:     p.cfg.Paths.Dataset,
		FallbackCSV: p.cfg.Paths.FallbackCSV,
		Output:      p.cfg.Paths.Records,
	})
	if err != nil {
		p.finishRun(ctx, runID, manifest.RunStats{Err: err})
		return recoverable(log, err)
	}

	p.finishRun(ctx, runID, manifest.RunStats{Records: res.Matched})
	return nil
}

// Render writes one PDF per group into the output directory, records each in
// the manifest and exports the index.
func (p *Pipeline) Render(ctx context.Context) error {
	log := p.logger.Stage(StageRender)
	start := time.Now()

	set, err := p.loadGroups()
	if err != nil {
		return recoverable(log, err)
	}

	runID, err := p.startRun(ctx, StageRender)
	if err != nil {
		return err
	}

	stats := manifest.RunStats{Groups: set.Len(), Records: set.Records()}
	rows, err := p.renderAll(ctx, log, set, runID, &stats)
	if err != nil {
		stats.Err = err
		p.finishRun(ctx, runID, stats)
		return err
	}

	if p.deps.Manifest != nil {
		if _, err := p.deps.Manifest.PruneReports(ctx, runID); err != nil {
			stats.Err = err
			p.finishRun(ctx, runID, stats)
			return errors.Wrap(err, errors.CodeInternal, "prune manifest")
		}
	}

	if p.cfg.IndexEnabled() {
		path := p.cfg.IndexPath()
		if err := catalog.Export(path, rows); err != nil {
			stats.Err = err
			p.finishRun(ctx, runID, stats)
			return errors.Wrap(err, errors.CodeInternal, "export index")
		}
		log.Info("wrote index", "path", path, "rows", len(rows))
	}

	p.finishRun(ctx, runID, stats)
	log.Info("render complete",
		"questions", set.Len(),
		"records", set.Records(),
		"without_image", stats.Failed,
		"output", p.cfg.Paths.Output,
		"duration", time.Since(start),
	)
	return nil
}

func (p *Pipeline) renderAll(ctx context.Context, log *slog.Logger, set *group.Set, runID string, stats *manifest.RunStats) ([]catalog.Row, error) {
	if err := os.MkdirAll(p.cfg.Paths.Output, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "create output directory %s", p.cfg.Paths.Output)
	}

	refs := make([]string, 0, set.Len())
	for _, g := range set.Groups() {
		refs = append(refs, g.Image())
	}
	blobs := p.deps.Fetcher.FetchAll(ctx, refs)

	rows := make([]catalog.Row, 0, set.Len())
	for i, g := range set.Groups() {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		n := i + 1
		name := group.FileName(n)
		blob := blobs[g.Image()]
		if blob.Status == fetch.Unavailable {
			log.Info("image unavailable, using description",
				"question", n,
				"url", g.Image(),
				"error", blob.Err,
			)
		}

		out, err := p.deps.Renderer.Render(g, blob, filepath.Join(p.cfg.Paths.Output, name))
		if err != nil {
			return rows, err
		}
		if !out.ImageEmbedded {
			stats.Failed++
		}
		log.Info("rendered report",
			"question", n,
			"answers", g.Len(),
			"pages", out.Pages,
			"image", out.ImageEmbedded,
			"path", out.Path,
		)

		if p.deps.Manifest != nil {
			err := p.deps.Manifest.PutReport(ctx, &manifest.Report{
				GroupID:    g.ID,
				Position:   n,
				FileName:   name,
				Topic:      g.Topic(),
				Subject:    g.Subject(),
				ImageRef:   g.Image(),
				Answers:    g.Len(),
				BlobStatus: blob.Status.String(),
				BlobPath:   blob.Path,
				BlurHash:   blob.BlurHash,
				Pages:      out.Pages,
				Status:     manifest.StatusRendered,
				OutputPath: out.Path,
				RunID:      runID,
			})
			if err != nil {
				return rows, errors.Wrapf(err, errors.CodeInternal, "record question %d", n)
			}
		}

		rows = append(rows, catalog.Row{
			Position:    n,
			Topic:       g.Topic(),
			Subject:     g.Subject(),
			Answers:     g.Len(),
			Image:       g.Image(),
			ImageStatus: blob.Status.String(),
			File:        name,
		})
	}
	return rows, nil
}

// Categorize moves rendered PDFs into per-category directories.
func (p *Pipeline) Categorize(ctx context.Context) error {
	log := p.logger.Stage(StageCategorize)

	set, err := p.loadGroups()
	if err != nil {
		return recoverable(log, err)
	}

	runID, err := p.startRun(ctx, StageCategorize)
	if err != nil {
		return err
	}

	res, err := p.deps.Categorizer.Run(ctx, set, p.cfg.Paths.Output, p.cfg.Paths.Categorized)
	stats := manifest.RunStats{Groups: set.Len(), Records: set.Records(), Err: err}
	if res != nil {
		stats.Failed = res.Missing
	}
	p.finishRun(ctx, runID, stats)
	if err != nil {
		return recoverable(log, err)
	}

	log.Info("categorize complete",
		"moved", res.Moved,
		"missing", res.Missing,
		"categories", len(res.Categories),
		"output", p.cfg.Paths.Categorized,
	)
	return nil
}

func (p *Pipeline) loadGroups() (*group.Set, error) {
	records, err := record.LoadFile(p.cfg.Paths.Records)
	if err != nil {
		return nil, err
	}
	return group.By(records, group.Options{
		Key:         group.ByField(p.cfg.Group.Field),
		MissingKeys: group.MissingKeys(p.cfg.Group.MissingKeys),
	}), nil
}

func (p *Pipeline) startRun(ctx context.Context, stage string) (string, error) {
	if p.deps.Manifest == nil {
		return "", nil
	}
	runID, err := p.deps.Manifest.StartRun(ctx, stage)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeInternal, "start %s run", stage)
	}
	return runID, nil
}

// finishRun records the outcome even when ctx was canceled.
func (p *Pipeline) finishRun(ctx context.Context, runID string, stats manifest.RunStats) {
	if p.deps.Manifest == nil || runID == "" {
		return
	}
	if err := p.deps.Manifest.FinishRun(context.WithoutCancel(ctx), runID, stats); err != nil {
		p.logger.WithField("run_id", runID).WithError(err).Warn("failed to record run")
	}
}

// recoverable logs err and swallows it when its code allows the stage to end
// cleanly. Anything else is returned.
func recoverable(log *slog.Logger, err error) error {
	if errors.CodeOf(err).Recoverable() {
		log.Warn("stage skipped", "code", errors.CodeOf(err), "error", err)
		return nil
	}
	return err
}
