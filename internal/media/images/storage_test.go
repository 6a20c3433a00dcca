package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	t.Run("creates nested directories if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "downloaded_images")

		storage, err := NewStorage(dir)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, dir, storage.Dir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("")
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "base path cannot be empty")
	})
}

func TestStorage_Save(t *testing.T) {
	t.Run("saves image data successfully", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("test image data")

		require.NoError(t, storage.Save("chart.png", testData))

		data, err := os.ReadFile(storage.Path("chart.png"))
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("rejects bad names", func(t *testing.T) {
		storage := setupTestStorage(t)

		for _, name := range []string{"", "..", "a/b.png", `a\b.png`} {
			assert.Error(t, storage.Save(name, []byte("x")), name)
		}
	})

	t.Run("returns error for empty image data", func(t *testing.T) {
		storage := setupTestStorage(t)

		err := storage.Save("chart.png", []byte{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "image data cannot be empty")
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		storage := setupTestStorage(t)

		require.NoError(t, storage.Save("chart.png", []byte("initial data")))
		require.NoError(t, storage.Save("chart.png", []byte("updated data")))

		data, err := storage.Get("chart.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("updated data"), data)
	})
}

func TestStorage_Get(t *testing.T) {
	storage := setupTestStorage(t)

	data, err := storage.Get("missing.png")
	assert.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "image not found")
}

func TestStorage_Exists(t *testing.T) {
	storage := setupTestStorage(t)

	assert.False(t, storage.Exists("chart.png"))
	require.NoError(t, storage.Save("chart.png", []byte("data")))
	assert.True(t, storage.Exists("chart.png"))

	require.NoError(t, os.Mkdir(storage.Path("dir.png"), 0o755))
	assert.False(t, storage.Exists("dir.png"), "directories are not images")
	assert.False(t, storage.Exists(""))
}

// setupTestStorage creates a Storage instance with a temporary directory.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}
