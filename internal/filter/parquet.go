package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const parquetBatchSize = 256

// readParquet scans a parquet file and keeps rows whose score column holds the
// target as a stored string. Numeric and null scores never match.
func readParquet(ctx context.Context, path string, m matcher) (*table, error) {
	file, err := os.Open(path) //#nosec G304 -- dataset path comes from configuration
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	leaves := pf.Schema().Columns()
	columns := make([]string, len(leaves))
	scoreIdx := -1
	for i, p := range leaves {
		columns[i] = strings.Join(p, ".")
		if columns[i] == m.column {
			scoreIdx = i
		}
	}
	if scoreIdx < 0 {
		return nil, fmt.Errorf("column %q not found", m.column)
	}

	t := &table{columns: columns}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	buf := make([]parquet.Row, parquetBatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			t.scanned++
			if !parquetMatches(row, scoreIdx, m.target) {
				continue
			}
			t.rows = append(t.rows, convertParquetRow(row, columns))
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	return t, nil
}

func parquetMatches(row parquet.Row, scoreIdx int, target string) bool {
	var score *parquet.Value
	for i := range row {
		if row[i].Column() != scoreIdx {
			continue
		}
		if score != nil {
			return false // repeated column
		}
		score = &row[i]
	}
	if score == nil || score.IsNull() {
		return false
	}
	switch score.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(score.ByteArray()) == target
	default:
		return false
	}
}

func convertParquetRow(row parquet.Row, columns []string) Row {
	values := make([]any, len(columns))
	seen := make([]int, len(columns))

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(columns) {
			continue
		}
		converted := parquetValue(v)
		switch seen[col] {
		case 0:
			values[col] = converted
		case 1:
			values[col] = []any{values[col], converted}
		default:
			values[col] = append(values[col].([]any), converted)
		}
		seen[col]++
	}

	return Row{columns: columns, values: values}
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return nanToNil(float64(v.Float()))
	case parquet.Double:
		return nanToNil(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func nanToNil(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
