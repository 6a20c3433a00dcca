package record

import (
	"io"
	"io/fs"
	"os"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/jsonl"
)

// Load reads newline-delimited JSON objects from r, in order.
// Blank lines are skipped. The first malformed line fails the whole load.
func Load(r io.Reader) ([]Record, error) {
	records := []Record{}
	for line, err := range jsonl.NewReader(r).Lines() {
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeParse, "read records at line %d", line.Number)
		}
		rec, err := Parse(line.Number, line.Data)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeParse, "line %d: malformed record", line.Number)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads the records file at path. A missing file is a MissingInput error.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path) //#nosec G304 -- records path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.MissingInputf("records file %s not found", path).WithCause(err)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "open records file %s", path)
	}
	defer f.Close()

	records, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeParse, "%s", path)
	}
	return records, nil
}
