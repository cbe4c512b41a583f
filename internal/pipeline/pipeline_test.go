package pipeline_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/pipeline"
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

func sampleTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"readme.txt":      "Crystal Archive round-trip fixture.\n",
		"data/values.csv":  "id,value\n1,10\n2,20\n3,30\n",
		"data/nested/x.bin": string(make([]byte, 512)),
	})
}

func TestEncodeDecodeRoundTripProfileA(t *testing.T) {
	src := sampleTree(t)
	archive, err := pipeline.Encode(src, pipeline.ProfileA, pipeline.Options{Seed: 1})
	require.NoError(t, err)
	require.NotEmpty(t, archive.Tiles)

	out := t.TempDir()
	result, err := pipeline.Decode(archive.Manifest, archive.Tiles, out, false)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	got, err := os.ReadFile(filepath.Join(out, "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Crystal Archive round-trip fixture.\n", string(got))

	got, err = os.ReadFile(filepath.Join(out, "data/values.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,value\n1,10\n2,20\n3,30\n", string(got))
}

func TestEncodeDecodeRoundTripProfileB(t *testing.T) {
	src := sampleTree(t)
	archive, err := pipeline.Encode(src, pipeline.ProfileB, pipeline.Options{Seed: 99})
	require.NoError(t, err)

	out := t.TempDir()
	result, err := pipeline.Decode(archive.Manifest, archive.Tiles, out, true)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	got, err := os.ReadFile(filepath.Join(out, "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Crystal Archive round-trip fixture.\n", string(got))
}

func TestEncodeIsDeterministicForSeed(t *testing.T) {
	src := sampleTree(t)
	a, err := pipeline.Encode(src, pipeline.ProfileA, pipeline.Options{Seed: 7})
	require.NoError(t, err)
	b, err := pipeline.Encode(src, pipeline.ProfileA, pipeline.Options{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, a.Manifest.Integrity.MerkleRoot, b.Manifest.Integrity.MerkleRoot)
}

func TestUnknownProfileRejected(t *testing.T) {
	_, err := pipeline.LookupProfile("Z")
	require.Error(t, err)
}

func TestSignedArchiveVerifies(t *testing.T) {
	src := sampleTree(t)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	archive, err := pipeline.Encode(src, pipeline.ProfileA, pipeline.Options{Seed: 3, SigningKey: priv})
	require.NoError(t, err)
	require.NotNil(t, archive.Manifest.Integrity.Signature)

	ok, err := archive.Manifest.VerifySignature()
	require.NoError(t, err)
	assert.True(t, ok)
}
