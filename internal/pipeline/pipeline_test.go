package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bandreports/bandreports/internal/catalog"
	"github.com/bandreports/bandreports/internal/categorize"
	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/fetch"
	"github.com/bandreports/bandreports/internal/filter"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/manifest"
	"github.com/bandreports/bandreports/internal/media/images"
	"github.com/bandreports/bandreports/internal/render"
)

type harness struct {
	cfg      *config.Config
	pipeline *Pipeline
	store    *manifest.Store
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		Dataset:     filepath.Join(dir, "train.parquet"),
		FallbackCSV: filepath.Join(dir, "train.csv"),
		Records:     filepath.Join(dir, "high_score_results.jsonl"),
		Images:      filepath.Join(dir, "downloaded_images"),
		Output:      filepath.Join(dir, "pdfs"),
		Categorized: filepath.Join(dir, "categorized_pdfs"),
		Manifest:    filepath.Join(dir, "bandreports.db"),
	}
	cfg.Fetch.Timeout = 5 * time.Second
	require.NoError(t, cfg.Validate())
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	log := logger.New(logger.Config{Writer: io.Discard, NoColor: true})

	storage, err := images.NewStorage(cfg.Paths.Images)
	require.NoError(t, err)
	fetcher := fetch.New(storage, fetch.Options{Timeout: cfg.Fetch.Timeout, MaxBytes: cfg.Fetch.MaxBytes}, log.Stage(StageRender))
	t.Cleanup(fetcher.Close)

	renderer, err := render.New(render.Options{Style: cfg.Render.Style}, log.Stage(StageRender))
	require.NoError(t, err)

	h := &harness{cfg: cfg}
	deps := Deps{
		Filter: filter.New(filter.Options{
			ScoreColumn:      cfg.Filter.ScoreField,
			Target:           cfg.Filter.Target,
			EvaluationColumn: cfg.Filter.EvaluationColumn,
		}, log.Stage(StageFilter)),
		Fetcher:  fetcher,
		Renderer: renderer,
	}

	if cfg.ManifestEnabled() {
		h.store, err = manifest.Open(cfg.Paths.Manifest, log.Logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = h.store.Close() })
		deps.Manifest = h.store
		deps.Categorizer = categorize.New(cfg.Categorize.Field, h.store, log.Stage(StageCategorize))
	} else {
		deps.Categorizer = categorize.New(cfg.Categorize.Field, nil, log.Stage(StageCategorize))
	}

	h.pipeline = New(cfg, log, deps)
	return h
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := range 30 {
		for x := range 40 {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/u1.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "%s is not a PDF", path)
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := pngServer(t)
	cfg := testConfig(t)
	h := newHarness(t, cfg)

	// The parquet dataset is absent, so the CSV fallback is used.
	writeCSV(t, cfg.Paths.FallbackCSV, [][]string{
		{"image", "topic", "subject", "image_description", "content", "evaluation"},
		{srv.URL + "/u1.png", "Maps", "Town", "Two maps", "Essay one.", "Overall Band Score: 9"},
		{srv.URL + "/u1.png", "Maps", "Town", "Two maps", "Essay two.", "Overall Band Score: [9]"},
		{srv.URL + "/u2.png", "Charts", "Sales", "A bar chart", "Essay three.", "Overall Band Score: 9"},
		{srv.URL + "/u3.png", "Tables", "Rain", "A table", "Essay four.", "Overall Band Score: 8"},
	})

	require.NoError(t, h.pipeline.Run(ctx))

	assert.Equal(t, 3, countLines(t, cfg.Paths.Records))

	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Maps", "question_1.pdf"))
	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Charts", "question_2.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "question_1.pdf"))
	assert.NoDirExists(t, filepath.Join(cfg.Paths.Categorized, "Tables"))

	// u1 downloaded once, u2 missing.
	entries, err := os.ReadDir(cfg.Paths.Images)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1.png", entries[0].Name())

	reports, err := h.store.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Maps", reports[0].Topic)
	assert.Equal(t, 2, reports[0].Answers)
	assert.Equal(t, "available", reports[0].BlobStatus)
	assert.NotEmpty(t, reports[0].BlurHash)
	assert.Equal(t, "unavailable", reports[1].BlobStatus)
	for _, r := range reports {
		assert.Equal(t, manifest.StatusCategorized, r.Status)
	}

	f, err := excelize.OpenFile(cfg.IndexPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows(catalog.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Maps", rows[1][1])
	assert.Equal(t, "question_2.pdf", rows[2][6])
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	srv := pngServer(t)
	cfg := testConfig(t)
	h := newHarness(t, cfg)

	writeCSV(t, cfg.Paths.FallbackCSV, [][]string{
		{"image", "topic", "content", "evaluation"},
		{srv.URL + "/u1.png", "Maps", "Essay.", "Overall Band Score: 9"},
	})

	require.NoError(t, h.pipeline.Run(ctx))
	require.NoError(t, h.pipeline.Run(ctx))

	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Maps", "question_1.pdf"))
	reports, err := h.store.Reports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestStages_MissingInputsAreNotErrors(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	ctx := context.Background()

	require.NoError(t, h.pipeline.Filter(ctx))
	assert.NoFileExists(t, cfg.Paths.Records)

	require.NoError(t, h.pipeline.Render(ctx))
	assert.NoDirExists(t, cfg.Paths.Output)

	require.NoError(t, h.pipeline.Categorize(ctx))
	assert.NoDirExists(t, cfg.Paths.Categorized)

	require.NoError(t, h.pipeline.Run(ctx))
}

func TestCategorize_MissingOutputDirectory(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(`{"image":"u1","topic":"Maps"}`+"\n"), 0o644))

	require.NoError(t, h.pipeline.Categorize(context.Background()))
	assert.NoDirExists(t, cfg.Paths.Categorized)
}

func TestRender_MalformedRecordsAbort(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte("{\"image\":\"u1\"}\n{not json\n"), 0o644))

	err := h.pipeline.Render(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeParse, errors.CodeOf(err))
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestRender_PrunesStaleReports(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	h := newHarness(t, cfg)

	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(
		`{"topic":"Maps","content":"a"}`+"\n"+`{"image":"x","topic":"Charts","content":"b"}`+"\n"), 0o644))
	require.NoError(t, h.pipeline.Render(ctx))

	reports, err := h.store.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "skipped", reports[0].BlobStatus)

	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(`{"image":"x","topic":"Charts","content":"b"}`+"\n"), 0o644))
	require.NoError(t, h.pipeline.Render(ctx))

	reports, err = h.store.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Charts", reports[0].Topic)
	assert.Equal(t, 1, reports[0].Position)
}

func TestRun_SplitIdenticalKeylessRecords(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Group.MissingKeys = "split"
	h := newHarness(t, cfg)

	line := `{"topic":"Maps","content":"same essay"}` + "\n"
	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(line+line), 0o644))

	require.NoError(t, h.pipeline.Render(ctx))
	reports, err := h.store.Reports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	require.NoError(t, h.pipeline.Categorize(ctx))
	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Maps", "question_1.pdf"))
	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Maps", "question_2.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "question_1.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "question_2.pdf"))
}

func TestRender_WithoutManifestOrIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Manifest = config.Disabled
	cfg.Paths.Index = config.Disabled
	h := newHarness(t, cfg)

	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(`{"topic":"Maps","content":"a"}`+"\n"), 0o644))
	require.NoError(t, h.pipeline.Render(context.Background()))
	require.NoError(t, h.pipeline.Categorize(context.Background()))

	assertPDF(t, filepath.Join(cfg.Paths.Categorized, "Maps", "question_1.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "index.xlsx"))
	assert.NoFileExists(t, cfg.Paths.Manifest)
}

func TestRender_Canceled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Manifest = config.Disabled
	h := newHarness(t, cfg)
	require.NoError(t, os.WriteFile(cfg.Paths.Records, []byte(`{"topic":"Maps","content":"a"}`+"\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.pipeline.Render(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "question_1.pdf"))
}
