package filter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// readXLSX scans the first sheet of a workbook. The first row names the columns.
// Only text cells can match the target; a numeric 9 is not the stored string "9".
func readXLSX(ctx context.Context, path string, m matcher) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	columns := rows[0]
	scoreIdx := -1
	for i, c := range columns {
		if c == m.column {
			scoreIdx = i
			break
		}
	}
	if scoreIdx < 0 {
		return nil, fmt.Errorf("column %q not found", m.column)
	}

	t := &table{columns: columns}
	for r, cells := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.scanned++
		rowNum := r + 2

		if scoreIdx >= len(cells) || cells[scoreIdx] != m.target {
			continue
		}
		if !textCell(f, sheet, scoreIdx, rowNum) {
			continue
		}

		values := make([]any, len(columns))
		for i := range columns {
			if i >= len(cells) || cells[i] == "" {
				continue
			}
			values[i] = cells[i]
			if !textCell(f, sheet, i, rowNum) {
				if _, err := strconv.ParseFloat(cells[i], 64); err == nil {
					values[i] = json.Number(cells[i])
				}
			}
		}
		t.rows = append(t.rows, Row{columns: columns, values: values})
	}

	return t, nil
}

// textCell reports whether a cell stores a string. Numbers are written without
// a type attribute, so anything not explicitly textual counts as non-text.
func textCell(f *excelize.File, sheet string, col, row int) bool {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return false
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true
	default:
		return false
	}
}
