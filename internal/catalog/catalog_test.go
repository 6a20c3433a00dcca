package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.xlsx")

	rows := []Row{
		{Position: 1, Topic: "Maps", Subject: "Town", Answers: 2, Image: "https://example.com/a.png", ImageStatus: "available", File: "question_1.pdf"},
		{Position: 2, Topic: "Charts", Subject: "N/A", Answers: 1, Image: "", ImageStatus: "skipped", File: "question_2.pdf"},
	}
	require.NoError(t, Export(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{Sheet}, f.GetSheetList())

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, []string{"1", "Maps", "Town", "2", "https://example.com/a.png", "available", "question_1.pdf"}, got[1])
	assert.Equal(t, "Charts", got[2][1])
	assert.Equal(t, "question_2.pdf", got[2][6])
}

func TestExport_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.xlsx")
	require.NoError(t, Export(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExport_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Export(path, []Row{{Position: 1, Topic: "Maps", File: "question_1.pdf"}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestExport_TopicTint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.xlsx")
	require.NoError(t, Export(path, []Row{
		{Position: 1, Topic: "Maps"},
		{Position: 2, Topic: "Charts"},
		{Position: 3, Topic: "Maps"},
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	first, err := f.GetCellStyle(Sheet, "B2")
	require.NoError(t, err)
	second, err := f.GetCellStyle(Sheet, "B3")
	require.NoError(t, err)
	third, err := f.GetCellStyle(Sheet, "B4")
	require.NoError(t, err)

	assert.NotZero(t, first)
	assert.Equal(t, first, third)
	assert.NotEqual(t, first, second)
}

func TestExport_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.xlsx")
	require.NoError(t, Export(path, []Row{{Position: 1, Topic: "Maps"}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	width, err := f.GetColWidth(Sheet, "E")
	require.NoError(t, err)
	assert.InDelta(t, 60, width, 0.01)

	header, err := f.GetCellStyle(Sheet, "A1")
	require.NoError(t, err)
	assert.NotZero(t, header)
}

func TestLayout_ReturnsErrors(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), Sheet))

	err := layout(f, []columnWidth{{From: "A", To: "A", Width: 500}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width of A:A")
}
