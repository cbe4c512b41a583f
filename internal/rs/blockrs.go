package rs

import (
	"fmt"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Classic RS(255, 223) over GF(2^8): a systematic Reed-Solomon block code
// applied to fixed DefaultDataShards-byte chunks (§4.4), distinct from the
// shard fan-out scheme above. Unlike fan-out, which recovers whole shards
// from known erasure positions, this decoder locates its own errors: it
// corrects up to DefaultParityShards/2 byte errors per 255-byte codeword
// with no hint about where they landed, via Berlekamp-Massey error-locator
// search, Chien search, and the Forney algorithm — the same algorithm
// family as the original codec's reedsolo-backed `encode`/`decode` pair
// (as opposed to its separate erasure-oriented `create_shards`).

func rsGeneratorPoly(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = gfPolyMul(g, []byte{1, gfPow(2, i)})
	}
	return g
}

// rsEncodeBlock returns the systematic codeword for a single k-byte chunk:
// data verbatim followed by nsym parity bytes, the remainder of dividing
// data*x^nsym by the generator polynomial.
func rsEncodeBlock(data []byte, nsym int) []byte {
	gen := rsGeneratorPoly(nsym)
	out := make([]byte, len(data)+nsym)
	copy(out, data)
	for i := 0; i < len(data); i++ {
		coef := out[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(gen); j++ {
			out[i+j] ^= gfMul(gen[j], coef)
		}
	}
	copy(out, data) // the division above mutates the data region in place
	return out
}

func rsCalcSyndromes(msg []byte, nsym int) []byte {
	synd := make([]byte, nsym+1)
	for i := 0; i < nsym; i++ {
		synd[i+1] = gfPolyEval(msg, gfPow(2, i))
	}
	return synd
}

func rsFindErrataLocator(ePos []int) []byte {
	eLoc := []byte{1}
	for _, i := range ePos {
		term := gfPolyAdd([]byte{1}, []byte{gfPow(2, i), 0})
		eLoc = gfPolyMul(eLoc, term)
	}
	return eLoc
}

func rsFindErrorEvaluator(synd, errLoc []byte, nsym int) []byte {
	divisor := make([]byte, nsym+2)
	divisor[0] = 1
	_, remainder := gfPolyDiv(gfPolyMul(synd, errLoc), divisor)
	return remainder
}

// rsFindErrorLocator runs Berlekamp-Massey over synd to find the error
// locator polynomial, given eraseCount known erasures already folded out
// via Forney syndromes.
func rsFindErrorLocator(synd []byte, nsym int, eraseCount int, eraseLoc []byte) ([]byte, error) {
	var errLoc, oldLoc []byte
	if eraseLoc != nil {
		errLoc = append([]byte(nil), eraseLoc...)
		oldLoc = append([]byte(nil), eraseLoc...)
	} else {
		errLoc = []byte{1}
		oldLoc = []byte{1}
	}
	syndShift := 0
	if len(synd) > nsym {
		syndShift = len(synd) - nsym
	}

	for i := 0; i < nsym-eraseCount; i++ {
		var K int
		if eraseLoc != nil {
			K = eraseCount + i + syndShift
		} else {
			K = i + syndShift
		}
		delta := synd[K]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[K-j])
		}
		oldLoc = append(oldLoc, 0)

		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := gfPolyScale(oldLoc, delta)
				oldLoc = gfPolyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = gfPolyAdd(errLoc, gfPolyScale(oldLoc, delta))
		}
	}

	start := 0
	for start < len(errLoc)-1 && errLoc[start] == 0 {
		start++
	}
	errLoc = errLoc[start:]

	errs := len(errLoc) - 1
	if (errs-eraseCount)*2+eraseCount > nsym {
		return nil, fmt.Errorf("%w: too many errors to correct", ccerrors.ErrUncorrectableBlock)
	}
	return errLoc, nil
}

// rsFindErrors runs a Chien search over errLoc (already reversed by the
// caller) to recover the error positions it encodes.
func rsFindErrors(errLoc []byte, nmess int) ([]int, error) {
	errs := len(errLoc) - 1
	var errPos []int
	for i := 0; i < nmess; i++ {
		if gfPolyEval(errLoc, gfPow(2, i)) == 0 {
			errPos = append(errPos, nmess-1-i)
		}
	}
	if len(errPos) != errs {
		return nil, fmt.Errorf("%w: could not locate all errors", ccerrors.ErrUncorrectableBlock)
	}
	return errPos, nil
}

func rsForneySyndromes(synd []byte, pos []int, nmess int) []byte {
	fsynd := append([]byte(nil), synd[1:]...)
	for i := range pos {
		x := gfPow(2, nmess-1-pos[i])
		for j := 0; j < len(fsynd)-1; j++ {
			fsynd[j] = gfMul(fsynd[j], x) ^ fsynd[j+1]
		}
		fsynd = fsynd[:len(fsynd)-1]
	}
	return fsynd
}

// rsCorrectErrata applies the Forney algorithm to compute error magnitudes
// at errPos and repairs msgIn in place (returning the repaired copy).
func rsCorrectErrata(msgIn []byte, synd []byte, errPos []int) ([]byte, error) {
	coefPos := make([]int, len(errPos))
	for i, p := range errPos {
		coefPos[i] = len(msgIn) - 1 - p
	}
	errLoc := rsFindErrataLocator(coefPos)
	omega := rsFindErrorEvaluator(reverseBytes(synd), errLoc, len(errLoc)-1)

	X := make([]byte, len(coefPos))
	for i, cp := range coefPos {
		l := 255 - cp
		X[i] = gfPow(2, -l)
	}

	E := make([]byte, len(msgIn))
	for i, Xi := range X {
		XiInv := gfInverse(Xi)

		errLocPrime := byte(1)
		for j, Xj := range X {
			if j == i {
				continue
			}
			errLocPrime = gfMul(errLocPrime, byte(1)^gfMul(XiInv, Xj))
		}
		if errLocPrime == 0 {
			return nil, fmt.Errorf("%w: could not compute error magnitude", ccerrors.ErrUncorrectableBlock)
		}

		y := gfPolyEval(omega, XiInv)
		y = gfMul(Xi, y)

		magnitude := gfDiv(y, errLocPrime)
		E[errPos[i]] = magnitude
	}

	return gfPolyAdd(msgIn, E), nil
}

// rsCorrectMsg corrects up to nsym/2 unknown-position byte errors (or, with
// erasePos supplied, up to nsym erasures plus fewer errors) in a single
// n-byte codeword, returning its data and parity portions separately.
func rsCorrectMsg(msgIn []byte, nsym int, erasePos []int) (data []byte, parity []byte, err error) {
	if len(msgIn) > 255 {
		return nil, nil, fmt.Errorf("%w: rs codeword too long (%d bytes)", ccerrors.ErrMalformedBlob, len(msgIn))
	}
	msgOut := append([]byte(nil), msgIn...)
	for _, p := range erasePos {
		msgOut[p] = 0
	}
	if len(erasePos) > nsym {
		return nil, nil, fmt.Errorf("%w: %d erasures exceeds budget %d", ccerrors.ErrUncorrectableBlock, len(erasePos), nsym)
	}

	synd := rsCalcSyndromes(msgOut, nsym)
	allZero := true
	for _, v := range synd {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return msgOut[:len(msgOut)-nsym], msgOut[len(msgOut)-nsym:], nil
	}

	fsynd := rsForneySyndromes(synd, erasePos, len(msgOut))
	errLoc, err := rsFindErrorLocator(fsynd, nsym, len(erasePos), nil)
	if err != nil {
		return nil, nil, err
	}
	errPos, err := rsFindErrors(reverseBytes(errLoc), len(msgOut))
	if err != nil {
		return nil, nil, err
	}

	allPos := append(append([]int(nil), erasePos...), errPos...)
	corrected, err := rsCorrectErrata(msgOut, synd, allPos)
	if err != nil {
		return nil, nil, err
	}
	verify := rsCalcSyndromes(corrected, nsym)
	for _, v := range verify {
		if v != 0 {
			return nil, nil, fmt.Errorf("%w: residual syndrome after correction", ccerrors.ErrUncorrectableBlock)
		}
	}
	return corrected[:len(corrected)-nsym], corrected[len(corrected)-nsym:], nil
}

// BlockEncode applies the classic systematic RS(255, 223) block code to
// data: it is chunked into DefaultDataShards-byte pieces (the trailing
// piece zero-padded) and each gets DefaultParityShards parity bytes, fully
// independent of the shard fan-out scheme. Returns the concatenated
// 255-byte codewords and the zero-padding length added to the final chunk.
func BlockEncode(data []byte) (encoded []byte, pad int) {
	k := DefaultDataShards
	nsym := DefaultParityShards
	n := k + nsym

	nChunks := (len(data) + k - 1) / k
	if nChunks == 0 {
		nChunks = 1
	}
	encoded = make([]byte, 0, nChunks*n)
	for i := 0; i < nChunks; i++ {
		start := i * k
		end := start + k
		chunk := make([]byte, k)
		if start < len(data) {
			copyEnd := end
			if copyEnd > len(data) {
				copyEnd = len(data)
			}
			copy(chunk, data[start:copyEnd])
			if copyEnd < end {
				pad = end - copyEnd
			}
		} else {
			pad = k
		}
		encoded = append(encoded, rsEncodeBlock(chunk, nsym)...)
	}
	return encoded, pad
}

// BlockPadFor returns the zero-padding length BlockEncode would add to a
// chunk stream for a data blob of the given total byte length, without
// needing the blob itself — used by decoders that only know the original
// size from manifest metadata.
func BlockPadFor(size int) int {
	k := DefaultDataShards
	if size == 0 {
		return k
	}
	if size%k == 0 {
		return 0
	}
	return k - size%k
}

// BlockEncodedSizeFor returns the encoded byte length BlockEncode produces
// for a data blob of the given total byte length.
func BlockEncodedSizeFor(size int) int {
	k := DefaultDataShards
	n := k + DefaultParityShards
	nChunks := (size + k - 1) / k
	if nChunks == 0 {
		nChunks = 1
	}
	return nChunks * n
}

// BlockDecode reverses BlockEncode, independently correcting up to
// DefaultParityShards/2 unknown-position byte errors in each 255-byte
// chunk. It returns ErrUncorrectableBlock if any chunk carries more
// damage than that budget allows. pad is the zero-padding length
// BlockEncode reported, trimmed from the final chunk's data bytes.
func BlockDecode(encoded []byte, pad int) ([]byte, error) {
	k := DefaultDataShards
	nsym := DefaultParityShards
	n := k + nsym
	if len(encoded)%n != 0 {
		return nil, fmt.Errorf("%w: block rs stream length %d is not a multiple of %d", ccerrors.ErrMalformedBlob, len(encoded), n)
	}

	nChunks := len(encoded) / n
	out := make([]byte, 0, nChunks*k)
	for i := 0; i < nChunks; i++ {
		chunk := encoded[i*n : (i+1)*n]
		data, _, err := rsCorrectMsg(chunk, nsym, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: block rs chunk %d: %v", ccerrors.ErrUncorrectableBlock, i, err)
		}
		out = append(out, data...)
	}
	if pad > 0 && pad <= len(out) {
		out = out[:len(out)-pad]
	}
	return out, nil
}
