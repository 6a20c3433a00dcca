package jsonl

import (
	"encoding/json"
	"io"
)

// Writer encodes values as JSON lines. HTML characters are written verbatim.
type Writer struct {
	enc   *json.Encoder
	count int
}

// NewWriter creates a JSONL writer on w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write encodes a single value as one line.
func (w *Writer) Write(v any) error {
	// Encode terminates the value with a newline.
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns values written so far.
func (w *Writer) Count() int {
	return w.count
}
