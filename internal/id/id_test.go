package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 500

	for i := 0; i < count; i++ {
		id, err := Generate("run")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("run")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "run-"))
	assert.Len(t, strings.TrimPrefix(id, "run-"), 21)
}

func TestStable(t *testing.T) {
	a := Stable("https://example.com/chart.png")
	b := Stable("https://example.com/chart.png")
	c := Stable("https://example.com/map.png")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestStable_EmptyKey(t *testing.T) {
	assert.Equal(t, Stable(""), Stable(""))
	assert.NotEqual(t, Stable(""), Stable(" "))
}
