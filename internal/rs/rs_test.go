package rs_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/rs"
)

func payload(n int) []byte {
	r := rand.New(rand.NewSource(42))
	b := make([]byte, n)
	r.Read(b)
	return b
}

func allPresent(n int) []bool {
	p := make([]bool, n)
	for i := range p {
		p[i] = true
	}
	return p
}

func TestReedSolomonRoundTripNoLoss(t *testing.T) {
	data := payload(5000)
	block, err := rs.Encode(data, 10, 4, rs.SchemeReedSolomon)
	require.NoError(t, err)

	back, err := rs.Decode(block, allPresent(14))
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestReedSolomonToleratesMaxErasures(t *testing.T) {
	data := payload(5000)
	block, err := rs.Encode(data, 10, 4, rs.SchemeReedSolomon)
	require.NoError(t, err)

	present := allPresent(14)
	present[0] = false
	present[3] = false
	present[7] = false
	present[13] = false

	back, err := rs.Decode(block, present)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestReedSolomonFailsBeyondBudget(t *testing.T) {
	data := payload(5000)
	block, err := rs.Encode(data, 10, 4, rs.SchemeReedSolomon)
	require.NoError(t, err)

	present := allPresent(14)
	present[0], present[1], present[2], present[3], present[4] = false, false, false, false, false

	_, err = rs.Decode(block, present)
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUncorrectableBlock)
}

func TestXORRecoversSingleErasure(t *testing.T) {
	data := payload(2048)
	block, err := rs.Encode(data, 6, 1, rs.SchemeXOR)
	require.NoError(t, err)

	present := allPresent(7)
	present[2] = false

	back, err := rs.Decode(block, present)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestXORFailsOnTwoErasures(t *testing.T) {
	data := payload(2048)
	block, err := rs.Encode(data, 6, 1, rs.SchemeXOR)
	require.NoError(t, err)

	present := allPresent(7)
	present[2] = false
	present[4] = false

	_, err = rs.Decode(block, present)
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUncorrectableBlock)
}

func TestUnknownScheme(t *testing.T) {
	_, err := rs.Encode(payload(100), 4, 2, "fountain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUnknownProfile)
}

func TestDefaultShardCountsMatchClassicRS255223(t *testing.T) {
	assert.Equal(t, 223, rs.DefaultDataShards)
	assert.Equal(t, 32, rs.DefaultParityShards)
	assert.Equal(t, 255, rs.DefaultDataShards+rs.DefaultParityShards)
}

func TestBlockRSRoundTripNoErrors(t *testing.T) {
	data := payload(3 * rs.DefaultDataShards)
	encoded, pad := rs.BlockEncode(data)
	require.Equal(t, rs.BlockEncodedSizeFor(len(data)), len(encoded))

	back, err := rs.BlockDecode(encoded, pad)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestBlockRSCorrectsUnknownPositionByteErrors(t *testing.T) {
	data := payload(rs.DefaultDataShards)
	encoded, pad := rs.BlockEncode(data)

	// Corrupt 16 bytes (the documented floor(32/2) error budget for a
	// single 255-byte codeword) at positions the decoder is never told.
	corrupt := append([]byte(nil), encoded...)
	for i := 0; i < 16; i++ {
		corrupt[i*15] ^= 0xFF
	}

	back, err := rs.BlockDecode(corrupt, pad)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestBlockRSFailsBeyondErrorBudget(t *testing.T) {
	data := payload(rs.DefaultDataShards)
	encoded, pad := rs.BlockEncode(data)

	corrupt := append([]byte(nil), encoded...)
	for i := 0; i < 17; i++ {
		corrupt[i*15] ^= 0xFF
	}

	_, err := rs.BlockDecode(corrupt, pad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrUncorrectableBlock)
}

func TestBlockRSHandlesNonMultipleLength(t *testing.T) {
	data := payload(rs.DefaultDataShards + 17)
	encoded, pad := rs.BlockEncode(data)
	assert.Equal(t, rs.DefaultDataShards-17, pad)

	back, err := rs.BlockDecode(encoded, pad)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}
