package filter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

// readCSV is the fallback source. Rows are kept when the free-text evaluation
// column mentions the target band score. This is a heuristic: an essay that
// quotes the phrase also matches.
func readCSV(ctx context.Context, path string, m matcher) (*table, error) {
	file, err := os.Open(path) //#nosec G304 -- fallback path comes from configuration
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	evalIdx := -1
	for i, c := range header {
		if c == m.evaluationColumn {
			evalIdx = i
			break
		}
	}
	if evalIdx < 0 {
		return nil, fmt.Errorf("column %q not found", m.evaluationColumn)
	}

	needles := []string{
		"Overall Band Score: " + m.target,
		"Overall Band Score: [" + m.target + "]",
	}

	// Column types are inferred over every row, not just the matches.
	kinds := make([]columnKind, len(header))
	hasEmpty := make([]bool, len(header))
	var kept [][]string
	t := &table{columns: header}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.scanned+2, err)
		}
		t.scanned++

		for i := range header {
			if i >= len(cells) || cells[i] == "" {
				hasEmpty[i] = true
				continue
			}
			kinds[i] = widen(kinds[i], cells[i])
		}

		if evalIdx < len(cells) && containsAny(cells[evalIdx], needles) {
			kept = append(kept, cells)
		}
	}

	// An integer column with blanks is read as floats.
	for i := range kinds {
		if kinds[i] == kindInt && hasEmpty[i] {
			kinds[i] = kindFloat
		}
	}

	for _, cells := range kept {
		values := make([]any, len(header))
		for i := range header {
			if i >= len(cells) || cells[i] == "" {
				continue
			}
			values[i] = typedCell(cells[i], kinds[i])
		}
		t.rows = append(t.rows, Row{columns: header, values: values})
	}

	return t, nil
}

func widen(kind columnKind, cell string) columnKind {
	switch kind {
	case kindInt:
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return kindInt
		}
		fallthrough
	case kindFloat:
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return kindFloat
		}
	}
	return kindString
}

func typedCell(cell string, kind columnKind) any {
	switch kind {
	case kindInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		return nanToNil(f)
	default:
		return cell
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
