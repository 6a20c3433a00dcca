// Package catalog writes a spreadsheet index of rendered reports.
package catalog

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/bandreports/bandreports/internal/color"
	"github.com/bandreports/bandreports/internal/util"
)

// Sheet is the worksheet holding the index.
const Sheet = "Reports"

var headers = []string{"#", "Topic", "Subject", "Answers", "Image", "Image status", "PDF"}

// Row is one rendered report.
type Row struct {
	Position    int
	Topic       string
	Subject     string
	Answers     int
	Image       string
	ImageStatus string
	File        string
}

// Export writes rows to an XLSX workbook at path, replacing any previous index.
func Export(path string, rows []Row) error {
	f, err := build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := util.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	return nil
}

// columnWidth sets the width of columns From through To.
type columnWidth struct {
	From, To string
	Width    float64
}

var columnWidths = []columnWidth{
	{"A", "A", 6},
	{"B", "C", 28},
	{"D", "D", 10},
	{"E", "E", 60},
	{"F", "F", 14},
	{"G", "G", 20},
}

func build(rows []Row) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, rows); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, rows []Row) error {
	// Rename the default sheet rather than adding a second one.
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return err
	}

	tints := make(map[string]int)
	for i, r := range rows {
		line := i + 2
		values := []any{r.Position, r.Topic, r.Subject, r.Answers, r.Image, r.ImageStatus, r.File}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(Sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", r.Position, err)
			}
		}

		style, ok := tints[r.Topic]
		if !ok {
			var err error
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color.ForCategory(r.Topic)}},
			})
			if err != nil {
				return fmt.Errorf("tint %q: %w", r.Topic, err)
			}
			tints[r.Topic] = style
		}
		cell, _ := excelize.CoordinatesToCellName(2, line)
		if err := f.SetCellStyle(Sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style row %d: %w", r.Position, err)
		}
	}

	return layout(f, columnWidths)
}

func writeHeader(f *excelize.File) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(Sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if err := f.SetPanes(Sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func layout(f *excelize.File, widths []columnWidth) error {
	for _, w := range widths {
		if err := f.SetColWidth(Sheet, w.From, w.To, w.Width); err != nil {
			return fmt.Errorf("width of %s:%s: %w", w.From, w.To, err)
		}
	}
	return nil
}
