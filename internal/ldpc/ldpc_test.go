package ldpc_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ldpc"
)

func randomBits(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(r.Intn(2))
	}
	return bits
}

func TestEncodeIsSystematic(t *testing.T) {
	code, err := ldpc.New(64, 48, 7)
	require.NoError(t, err)

	data := randomBits(48, 1)
	codeword, err := code.Encode(data)
	require.NoError(t, err)
	require.Len(t, codeword, 64)
	assert.Equal(t, data, codeword[:48])
}

func TestDecodeHardNoErrors(t *testing.T) {
	code, err := ldpc.New(64, 48, 7)
	require.NoError(t, err)

	data := randomBits(48, 2)
	codeword, err := code.Encode(data)
	require.NoError(t, err)

	decoded, ok := code.DecodeHard(codeword, 50)
	assert.True(t, ok)
	assert.Equal(t, data, decoded)
}

func TestDecodeHardCorrectsSingleBitFlip(t *testing.T) {
	code, err := ldpc.New(128, 96, 11)
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		data := randomBits(96, int64(100+trial))
		codeword, err := code.Encode(data)
		require.NoError(t, err)

		flipped := append([]byte(nil), codeword...)
		flipIdx := trial % len(flipped)
		flipped[flipIdx] ^= 1

		decoded, ok := code.DecodeHard(flipped, 50)
		assert.Truef(t, ok, "trial %d: decode failed to converge", trial)
		assert.Equalf(t, data, decoded, "trial %d: decoded payload mismatch", trial)
	}
}

func TestDecodeSoftMinSumNoErrors(t *testing.T) {
	code, err := ldpc.New(64, 48, 7)
	require.NoError(t, err)

	data := randomBits(48, 3)
	codeword, err := code.Encode(data)
	require.NoError(t, err)

	llr := bitsToStrongLLR(codeword)
	decoded, posterior, ok := code.DecodeSoft(llr, 50, true)
	assert.True(t, ok)
	assert.Equal(t, data, decoded)
	assert.Len(t, posterior, 64)
}

func TestDecodeSoftSumProductNoErrors(t *testing.T) {
	code, err := ldpc.New(64, 48, 7)
	require.NoError(t, err)

	data := randomBits(48, 4)
	codeword, err := code.Encode(data)
	require.NoError(t, err)

	llr := bitsToStrongLLR(codeword)
	decoded, _, ok := code.DecodeSoft(llr, 50, false)
	assert.True(t, ok)
	assert.Equal(t, data, decoded)
}

func TestMatrixRegenerationIsDeterministic(t *testing.T) {
	a, err := ldpc.New(64, 48, 99)
	require.NoError(t, err)
	b, err := ldpc.New(64, 48, 99)
	require.NoError(t, err)

	data := randomBits(48, 5)
	ca, err := a.Encode(data)
	require.NoError(t, err)
	cb, err := b.Encode(data)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	code, err := ldpc.New(64, 48, 7)
	require.NoError(t, err)
	_, err = code.Encode(make([]byte, 10))
	require.Error(t, err)
}

// bitsToStrongLLR converts hard bits into confident LLRs: negative for 1,
// positive for 0, matching the decoder's L < 0 => 1 convention.
func bitsToStrongLLR(bits []byte) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b == 1 {
			out[i] = -5.0
		} else {
			out[i] = 5.0
		}
	}
	return out
}
