package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileExporterWritesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	exp := FileExporter{Dir: dir}

	path, err := exp.Export(context.Background(), "transcription_2026-10-14T09-30-05.txt", "héllo wörld")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "transcription_2026-10-14T09-30-05.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "héllo wörld", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileExporterReplacesExisting(t *testing.T) {
	exp := FileExporter{Dir: t.TempDir()}
	_, err := exp.Export(context.Background(), "a.txt", "first")
	require.NoError(t, err)
	path, err := exp.Export(context.Background(), "a.txt", "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestFileExporterRejectsPathNames(t *testing.T) {
	exp := FileExporter{Dir: t.TempDir()}
	for _, name := range []string{"", "../escape.txt", "sub/dir.txt"} {
		_, err := exp.Export(context.Background(), name, "x")
		require.Error(t, err, name)
	}
}

func TestDefaultExportDir(t *testing.T) {
	t.Setenv("XDG_DOWNLOAD_DIR", "/tmp/dl")
	dir, err := DefaultExportDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/dl", dir)

	t.Setenv("XDG_DOWNLOAD_DIR", "")
	t.Setenv("HOME", "/home/tester")
	dir, err = DefaultExportDir()
	require.NoError(t, err)
	require.Equal(t, "/home/tester/Downloads", dir)
}
