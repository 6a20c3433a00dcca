package manifest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "bandreports.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"runs", "reports"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandreports.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s.PutReport(context.Background(), testReport("g1", 1)))
	require.NoError(t, s.Close())

	s2, err := Open(path, logger)
	require.NoError(t, err)
	defer s2.Close()

	r, err := s2.Report(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "question_1.pdf", r.FileName)
}

func testReport(groupID string, pos int) *Report {
	return &Report{
		GroupID:    groupID,
		Position:   pos,
		FileName:   fmt.Sprintf("question_%d.pdf", pos),
		Topic:      "Maps",
		Subject:    "Town centre",
		ImageRef:   "http://h/" + groupID + ".png",
		Answers:    2,
		BlobStatus: "available",
		BlobPath:   "downloaded_images/" + groupID + ".png",
		BlurHash:   "LEHV6nWB2yk8pyo0adR*.7kCMdnj",
		Pages:      3,
		OutputPath: fmt.Sprintf("out/question_%d.pdf", pos),
	}
}

func TestRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	runID, err := s.StartRun(ctx, "render")
	require.NoError(t, err)
	assert.Contains(t, runID, "run-")

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	s.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, s.FinishRun(ctx, runID, RunStats{Groups: 2, Records: 3}))

	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Equal(t, 2, run.Groups)
	assert.Equal(t, 3, run.Records)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.Equal(base.Add(time.Minute)))
	assert.True(t, run.StartedAt.Equal(base))

	failedID, err := s.StartRun(ctx, "categorize")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, failedID, RunStats{Err: fmt.Errorf("disk full")}))
	failed, err := s.GetRun(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, failed.Status)
	assert.Equal(t, "disk full", failed.Error)

	assert.Error(t, s.FinishRun(ctx, "run-missing", RunStats{}))
	_, err = s.GetRun(ctx, "run-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutReport_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	require.NoError(t, s.PutReport(ctx, testReport("g1", 1)))

	got, err := s.Report(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, StatusRendered, got.Status)
	assert.Equal(t, 3, got.Pages)
	assert.Equal(t, "LEHV6nWB2yk8pyo0adR*.7kCMdnj", got.BlurHash)
	assert.Empty(t, got.RunID)

	s.now = func() time.Time { return base.Add(time.Hour) }
	updated := testReport("g1", 4)
	updated.BlobPath = ""
	require.NoError(t, s.PutReport(ctx, updated))

	got, err = s.Report(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Position)
	assert.Equal(t, "question_4.pdf", got.FileName)
	assert.Empty(t, got.BlobPath)
	assert.True(t, got.CreatedAt.Equal(base), "created_at survives updates")
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

	_, err = s.Report(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReports_OrderedByPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, r := range []*Report{testReport("g3", 3), testReport("g1", 1), testReport("g2", 2)} {
		require.NoError(t, s.PutReport(ctx, r))
	}

	reports, err := s.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i, r := range reports {
		assert.Equal(t, i+1, r.Position)
	}
}

func TestMarkCategorized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutReport(ctx, testReport("g1", 1)))

	require.NoError(t, s.MarkCategorized(ctx, "g1", "categorized/Maps/question_1.pdf"))

	got, err := s.Report(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, StatusCategorized, got.Status)
	assert.Equal(t, "categorized/Maps/question_1.pdf", got.OutputPath)

	assert.ErrorIs(t, s.MarkCategorized(ctx, "absent", "x"), ErrNotFound)
}

func TestPruneReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	oldRun, err := s.StartRun(ctx, "render")
	require.NoError(t, err)
	newRun, err := s.StartRun(ctx, "render")
	require.NoError(t, err)

	stale := testReport("stale", 2)
	stale.RunID = oldRun
	fresh := testReport("fresh", 1)
	fresh.RunID = newRun
	require.NoError(t, s.PutReport(ctx, stale))
	require.NoError(t, s.PutReport(ctx, fresh))

	n, err := s.PruneReports(ctx, newRun)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reports, err := s.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "fresh", reports[0].GroupID)
	assert.Equal(t, newRun, reports[0].RunID)
}
