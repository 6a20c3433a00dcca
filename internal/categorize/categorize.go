// Package categorize moves rendered reports into per-category directories.
package categorize

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/group"
	"github.com/bandreports/bandreports/internal/manifest"
	"github.com/bandreports/bandreports/internal/record"
	"github.com/bandreports/bandreports/internal/util"
)

// Manifest resolves a group's report file and records where it went.
type Manifest interface {
	Report(ctx context.Context, groupID string) (*manifest.Report, error)
	MarkCategorized(ctx context.Context, groupID, outputPath string) error
}

// Result summarizes a categorize run.
type Result struct {
	Moved   int
	Missing int
	// Categories are the directory names created, in first-occurrence order.
	Categories []string
}

// Categorizer files each group's report under <dst>/<category>/.
type Categorizer struct {
	field    string
	manifest Manifest
	logger   *slog.Logger
}

// New creates a categorizer keyed on the given record field. m may be nil, in
// which case files are located by position alone.
func New(field string, m Manifest, logger *slog.Logger) *Categorizer {
	if field == "" {
		field = record.FieldTopic
	}
	return &Categorizer{field: field, manifest: m, logger: logger}
}

// Category returns the directory name for g, taken from its first record.
func (c *Categorizer) Category(g *group.Group) string {
	return util.SafeName(g.First().Category(c.field), record.Unknown)
}

// Run moves the report of every group in set from srcDir into dstDir.
// set must be grouped exactly as it was when the reports were rendered.
// A report that is not where it is expected is logged and skipped.
func (c *Categorizer) Run(ctx context.Context, set *group.Set, srcDir, dstDir string) (*Result, error) {
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return nil, errors.MissingInputf("reports directory %s not found", srcDir).WithCause(err)
	}

	result := &Result{}
	seen := make(map[string]bool)
	for _, g := range set.Groups() {
		cat := c.Category(g)
		if seen[cat] {
			continue
		}
		seen[cat] = true
		if err := os.MkdirAll(filepath.Join(dstDir, cat), 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "create category directory %s", cat)
		}
		result.Categories = append(result.Categories, cat)
	}

	for i, g := range set.Groups() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n := i + 1
		name := c.fileName(ctx, g, n)
		src := filepath.Join(srcDir, name)
		cat := c.Category(g)
		dst := filepath.Join(dstDir, cat, name)

		if _, err := os.Stat(src); err != nil {
			result.Missing++
			c.logger.Warn("report not found, skipping",
				"question", n,
				"group_id", g.ID,
				"error", errors.RelocationMissf("source file %s not found", src).WithCause(err),
			)
			continue
		}

		if err := util.MoveFile(src, dst); err != nil {
			return result, errors.Wrapf(err, errors.CodeInternal, "move %s to %s", src, dst)
		}
		result.Moved++
		c.logger.Info("moved report", "question", n, "category", cat, "path", dst)

		if c.manifest != nil {
			if err := c.manifest.MarkCategorized(ctx, g.ID, dst); err != nil && !errors.Is(err, manifest.ErrNotFound) {
				return result, errors.Wrapf(err, errors.CodeInternal, "record move of %s", name)
			}
		}
	}

	return result, nil
}

// fileName finds the report file for the group at position n, preferring the
// manifest entry for its stable ID.
func (c *Categorizer) fileName(ctx context.Context, g *group.Group, n int) string {
	fallback := group.FileName(n)
	if c.manifest == nil {
		return fallback
	}

	rep, err := c.manifest.Report(ctx, g.ID)
	if err != nil {
		if !errors.Is(err, manifest.ErrNotFound) {
			c.logger.Warn("manifest lookup failed, using position", "group_id", g.ID, "error", err)
		}
		return fallback
	}
	if name := filepath.Base(rep.FileName); name != "." && name != string(filepath.Separator) {
		return name
	}
	return fallback
}
