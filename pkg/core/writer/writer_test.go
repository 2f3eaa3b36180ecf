package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	var w SubtitleWriter

	require.NoError(t, w.Write(dir, "movie.srt", []byte("subtitle text")))

	data, err := os.ReadFile(filepath.Join(dir, "movie.srt"))
	require.NoError(t, err)
	assert.Equal(t, "subtitle text", string(data))

	// No temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "movie.srt", entries[0].Name())
}

func TestWriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	var w SubtitleWriter

	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.srt"), []byte("old"), 0o644))
	require.NoError(t, w.Write(dir, "movie.srt", []byte("new")))

	data, err := os.ReadFile(filepath.Join(dir, "movie.srt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteMissingDirectory(t *testing.T) {
	var w SubtitleWriter
	err := w.Write(filepath.Join(t.TempDir(), "absent"), "movie.srt", []byte("x"))
	assert.Error(t, err)
}
