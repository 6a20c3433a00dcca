package jsonl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	entities := []testEntity{
		{ID: "1", Name: "First"},
		{ID: "2", Name: "Second <b>"},
	}
	for _, e := range entities {
		require.NoError(t, w.Write(e))
	}
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, "{\"id\":\"1\",\"name\":\"First\"}\n{\"id\":\"2\",\"name\":\"Second <b>\"}\n", buf.String())

	var numbers []int
	for line, err := range NewReader(&buf).Lines() {
		require.NoError(t, err)
		numbers = append(numbers, line.Number)
	}
	assert.Equal(t, []int{1, 2}, numbers)
}

func TestReader_SkipsBlankLines(t *testing.T) {
	input := "\n{\"a\":1}\n   \n\t\n{\"a\":2}\n"

	var got []Line
	for line, err := range NewReader(strings.NewReader(input)).Lines() {
		require.NoError(t, err)
		got = append(got, line)
	}

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Number)
	assert.Equal(t, `{"a":1}`, string(got[0].Data))
	assert.Equal(t, 5, got[1].Number)
}

func TestReader_Empty(t *testing.T) {
	count := 0
	for range NewReader(strings.NewReader("")).Lines() {
		count++
	}
	assert.Zero(t, count)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestReader_PropagatesReadError(t *testing.T) {
	var gotErr error
	for _, err := range NewReader(failingReader{}).Lines() {
		gotErr = err
	}
	assert.EqualError(t, gotErr, "disk gone")
}

func TestReader_StopsEarly(t *testing.T) {
	count := 0
	for range NewReader(strings.NewReader("{}\n{}\n{}\n")).Lines() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
