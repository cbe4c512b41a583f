package packer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/packer"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestRoundTrip(t *testing.T) {
	src := writeTree(t, map[string]string{
		"a.txt":        "Hello World",
		"b.txt":        "Test content",
		"nested/c.txt": "nested content",
	})

	blob, entries, err := packer.Pack(src)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Order is part of archive identity: lexicographic by path.
	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, "b.txt", entries[1].Path)
	assert.Equal(t, "nested/c.txt", entries[2].Path)

	dst := t.TempDir()
	unpacked, err := packer.Unpack(blob, dst)
	require.NoError(t, err)
	require.Len(t, unpacked, 3)

	for rel, content := range map[string]string{
		"a.txt":        "Hello World",
		"b.txt":        "Test content",
		"nested/c.txt": "nested content",
	} {
		got, err := os.ReadFile(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	}
}

func TestEmptyFileRoundTrips(t *testing.T) {
	src := writeTree(t, map[string]string{"empty.txt": ""})
	blob, entries, err := packer.Pack(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 0, entries[0].Size)

	dst := t.TempDir()
	_, err = packer.Unpack(blob, dst)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dst, "empty.txt"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnpackRejectsBadMagic(t *testing.T) {
	_, err := packer.Unpack([]byte("not a crystal archive"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrMalformedBlob)
}

func TestUnpackRejectsTruncatedRecord(t *testing.T) {
	src := writeTree(t, map[string]string{"a.txt": "hello"})
	blob, _, err := packer.Pack(src)
	require.NoError(t, err)

	truncated := blob[:len(blob)-2]
	_, err = packer.Unpack(truncated, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrMalformedBlob)
}

func TestPackIsDeterministic(t *testing.T) {
	src := writeTree(t, map[string]string{"z.txt": "z", "a.txt": "a", "m.txt": "m"})
	blob1, _, err := packer.Pack(src)
	require.NoError(t, err)
	blob2, _, err := packer.Pack(src)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(blob1, blob2))
}
