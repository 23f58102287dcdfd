package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.db")

	g := NewGrid(5, 4)
	g.Set(2, 3, 1)
	g.Set(0, 0, 1)
	require.NoError(t, WriteFile(path, "mask", g))

	got, err := ReadMask(path)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Width)
	assert.Equal(t, 4, got.Height)
	assert.Equal(t, float32(1), got.At(2, 3))
	assert.Equal(t, float32(0), got.At(1, 1))
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.db")

	first := NewGrid(2, 2)
	fillGrid(first, 1)
	require.NoError(t, WriteFile(path, "mask", first))

	second := NewGrid(3, 3)
	require.NoError(t, WriteFile(path, "mask", second))

	got, err := ReadMask(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Width, "second write should replace the first")
}

func TestReadFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.db")
	_, err := ReadMask(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Reading must not create the file as a side effect.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadFile_MissingRasterName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.db")
	require.NoError(t, WriteFile(path, "latitude", NewGrid(2, 2)))

	_, err := ReadFile(path, "longitude")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")
}
