package compressor_test

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/compressor"
)

func randomPayload(n int) []byte {
	r := rand.New(rand.NewSource(1))
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestRoundTripAllCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte("hello crystal archive "), 500)
	for _, codec := range []string{compressor.CodecZstd, compressor.CodecXZ, compressor.CodecNone} {
		t.Run(codec, func(t *testing.T) {
			out, info, err := compressor.Compress(payload, codec, 6)
			require.NoError(t, err)
			assert.Equal(t, codec, info.Codec)
			assert.EqualValues(t, len(payload), info.OriginalSize)

			back, err := compressor.Decompress(out, info)
			require.NoError(t, err)
			assert.Equal(t, payload, back)
		})
	}
}

func TestInfoRoundTripsThroughJSON(t *testing.T) {
	payload := randomPayload(4096)
	_, info, err := compressor.Compress(payload, compressor.CodecZstd, 9)
	require.NoError(t, err)

	raw, err := json.Marshal(info)
	require.NoError(t, err)

	var back compressor.Info
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, info, back)
}

func TestUnsupportedCodec(t *testing.T) {
	_, _, err := compressor.Compress([]byte("x"), "lz4-ultra", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUnsupportedCodec)

	_, err = compressor.Decompress([]byte("x"), compressor.Info{Codec: "lz4-ultra"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUnsupportedCodec)
}

func TestEmptyPayload(t *testing.T) {
	out, info, err := compressor.Compress(nil, compressor.CodecZstd, 6)
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.OriginalSize)
	back, err := compressor.Decompress(out, info)
	require.NoError(t, err)
	assert.Empty(t, back)
}
