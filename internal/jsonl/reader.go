// Package jsonl streams newline-delimited JSON.
package jsonl

import (
	"bufio"
	"bytes"
	"io"
	"iter"
)

// maxLineSize bounds a single line. Essay records run to a few KiB; this leaves headroom.
const maxLineSize = 16 << 20

// Line is one non-blank line of a JSONL stream.
type Line struct {
	// Number is the 1-based line number in the source.
	Number int
	// Data is the trimmed line. It is owned by the caller.
	Data []byte
}

// Reader streams lines from a JSONL source.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a streaming reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Lines returns an iterator over the non-blank lines of the stream.
// A read error is yielded once as the final element.
func (r *Reader) Lines() iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		n := 0
		for r.scanner.Scan() {
			n++
			data := bytes.TrimSpace(r.scanner.Bytes())
			if len(data) == 0 {
				continue
			}
			if !yield(Line{Number: n, Data: bytes.Clone(data)}, nil) {
				return
			}
		}

		if err := r.scanner.Err(); err != nil {
			yield(Line{Number: n + 1}, err)
		}
	}
}
