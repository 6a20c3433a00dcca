// Package filter extracts the rows of a wide dataset whose score matches a target
// and writes them as JSON lines.
package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/jsonl"
	"github.com/bandreports/bandreports/internal/util"
)

// Options configures the filter.
type Options struct {
	// ScoreColumn is compared against Target in the primary dataset.
	ScoreColumn string
	// Target is the exact stored value to keep, e.g. "9".
	Target string
	// EvaluationColumn is searched by the CSV fallback.
	EvaluationColumn string
}

// Sources names the inputs and the output of a filter run.
type Sources struct {
	Dataset     string
	FallbackCSV string
	Output      string
}

// Result summarizes a filter run.
type Result struct {
	Source   string
	Fallback bool
	Scanned  int
	Matched  int
	Duration time.Duration
}

type matcher struct {
	column           string
	target           string
	evaluationColumn string
}

type table struct {
	columns []string
	rows    []Row
	scanned int
}

// Filter selects high-scoring rows from a dataset.
type Filter struct {
	opts   Options
	logger *slog.Logger
}

// New creates a filter.
func New(opts Options, logger *slog.Logger) *Filter {
	return &Filter{opts: opts, logger: logger}
}

// Run reads the primary dataset, falling back to the CSV when the dataset cannot
// be read, and writes every matching row to src.Output.
// When neither source is readable nothing is written and a MissingInput error
// is returned.
func (f *Filter) Run(ctx context.Context, src Sources) (*Result, error) {
	start := time.Now()
	m := matcher{column: f.opts.ScoreColumn, target: f.opts.Target, evaluationColumn: f.opts.EvaluationColumn}

	result := &Result{Source: src.Dataset}
	t, primaryErr := f.readPrimary(ctx, src.Dataset, m)
	if primaryErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("primary dataset unreadable, trying fallback",
			"dataset", src.Dataset,
			"error", primaryErr,
		)

		var fallbackErr error
		if src.FallbackCSV == "" {
			fallbackErr = fmt.Errorf("no fallback configured")
		} else {
			t, fallbackErr = readCSV(ctx, src.FallbackCSV, m)
		}
		if fallbackErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("fallback dataset unreadable",
				"csv", src.FallbackCSV,
				"error", fallbackErr,
			)
			return nil, errors.MissingInputf("no readable dataset (%s, %s)", src.Dataset, src.FallbackCSV).
				WithCause(errors.Join(primaryErr, fallbackErr))
		}
		result.Source = src.FallbackCSV
		result.Fallback = true
	}

	result.Scanned = t.scanned
	result.Matched = len(t.rows)

	err := util.WriteAtomic(src.Output, 0o644, func(w io.Writer) error {
		jw := jsonl.NewWriter(w)
		for _, row := range t.rows {
			if err := jw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "write %s", src.Output)
	}

	result.Duration = time.Since(start)
	f.logger.Info("filtered dataset",
		"source", result.Source,
		"fallback", result.Fallback,
		"scanned", result.Scanned,
		"matched", result.Matched,
		"output", src.Output,
		"duration", result.Duration,
	)
	if result.Matched == 0 {
		f.logger.Warn("no rows matched",
			"column", f.opts.ScoreColumn,
			"target", f.opts.Target,
		)
	}

	return result, nil
}

func (f *Filter) readPrimary(ctx context.Context, path string, m matcher) (*table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(ctx, path, m)
	default:
		return readParquet(ctx, path, m)
	}
}
