// Package ldpc implements C5: a systematic low-density parity-check code
// with a deterministic, seed-regenerated parity-check matrix, a
// hard-decision bit-flipping decoder, and a soft-decision belief-propagation
// decoder (min-sum and sum-product variants).
//
// Bits are represented as one byte per bit (0 or 1) throughout this
// package, matching how the rest of the pipeline hands LDPC its blocks
// after bit-packing at the voxel layer.
package ldpc

import (
	"fmt"
	"math"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/prng"
)

// DefaultN and DefaultRate reproduce the default codeword length and the
// 0.75 rate profile of §4.5.
const (
	DefaultN    = 1024
	DefaultRate = 0.75
	minSumAlpha = 0.75
	clampTanh   = 0.9999
)

// Code is a deterministic (n, k) LDPC code: a sparse parity-check matrix H
// (data columns of weight 3, parity columns forming an identity block)
// derived entirely from (n, k, seedH).
type Code struct {
	N, K, M int
	seedH   uint64

	// rowCols[i] lists the columns with a 1 in parity row i.
	rowCols [][]int
	// colRows[j] lists the parity rows with a 1 in column j.
	colRows [][]int
}

// New deterministically constructs the (n, k) code's parity-check matrix
// from seedH. Calling New again with the same arguments reproduces an
// identical matrix — H is never persisted, only regenerated (§4.5,
// DESIGN NOTES "Matrix regeneration").
func New(n, k int, seedH uint64) (*Code, error) {
	m := n - k
	if n <= 0 || k <= 0 || m <= 0 {
		return nil, fmt.Errorf("%w: invalid ldpc dimensions n=%d k=%d", ccerrors.ErrUnknownProfile, n, k)
	}

	const colWeight = 3
	src := prng.New(seedH)

	rowCols := make([][]int, m)
	colRows := make([][]int, n)

	// Data columns (0..k-1) get colWeight random distinct parity-row
	// memberships each.
	for col := 0; col < k; col++ {
		rows := choose(src, m, colWeight)
		colRows[col] = rows
		for _, r := range rows {
			rowCols[r] = append(rowCols[r], col)
		}
	}

	// Parity columns (k..n-1) form an explicit m×m identity submatrix:
	// column k+row's sole membership is row itself, so H = [H_data | I_m].
	// This is what makes the systematic encoder's parity bits satisfy
	// H·cᵀ = 0 — without it, parity columns would be scattered across
	// random rows like data columns, and a freshly-encoded codeword would
	// generically have a nonzero syndrome.
	for row := 0; row < m; row++ {
		col := k + row
		colRows[col] = []int{row}
		rowCols[row] = append(rowCols[row], col)
	}

	return &Code{N: n, K: k, M: m, seedH: seedH, rowCols: rowCols, colRows: colRows}, nil
}

// choose picks count distinct values in [0, n) without replacement, using
// src — a small variant of Fisher–Yates partial shuffle suitable for
// count << n.
func choose(src *prng.Source, n, count int) []int {
	if count > n {
		count = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < count; i++ {
		j := i + src.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := append([]int(nil), pool[:count]...)
	return out
}

// Encode produces the systematic codeword for k information bits: the
// first k bits are copied verbatim, and each of the m parity bits is the
// XOR of the data bits whose column in H has a 1 in that parity row (§4.5).
func (c *Code) Encode(data []byte) ([]byte, error) {
	if len(data) != c.K {
		return nil, fmt.Errorf("%w: expected %d bits, got %d", ccerrors.ErrMalformedBlob, c.K, len(data))
	}
	codeword := make([]byte, c.N)
	copy(codeword, data)
	for row := 0; row < c.M; row++ {
		var parity byte
		for _, col := range c.rowCols[row] {
			if col < c.K {
				parity ^= data[col]
			}
		}
		codeword[c.K+row] = parity
	}
	return codeword, nil
}

func (c *Code) syndrome(codeword []byte) []byte {
	s := make([]byte, c.M)
	for row := 0; row < c.M; row++ {
		var acc byte
		for _, col := range c.rowCols[row] {
			acc ^= codeword[col]
		}
		s[row] = acc
	}
	return s
}

func syndromeWeight(s []byte) int {
	w := 0
	for _, b := range s {
		w += int(b)
	}
	return w
}

// DecodeHard runs the bit-flipping decoder (§4.5) for up to maxIter
// iterations. It always returns a best-effort value for the first k bits;
// the bool reports whether the syndrome reached zero.
func (c *Code) DecodeHard(received []byte, maxIter int) ([]byte, bool) {
	codeword := append([]byte(nil), received...)

	for iter := 0; iter < maxIter; iter++ {
		s := c.syndrome(codeword)
		if syndromeWeight(s) == 0 {
			return codeword[:c.K], true
		}

		bestBit, bestScore := -1, -1
		for j := 0; j < c.N; j++ {
			score := 0
			for _, row := range c.colRows[j] {
				score += int(s[row])
			}
			if score > bestScore {
				bestScore, bestBit = score, j
			}
		}
		if bestScore <= 0 {
			break
		}
		codeword[bestBit] ^= 1
	}
	return codeword[:c.K], false
}

// DecodeSoft runs min-sum (or sum-product, if minSum is false) belief
// propagation over per-bit LLRs (§4.5). Returns the hard-decided first k
// bits, the posterior LLRs over all n positions, and whether the syndrome
// reached zero within maxIter sweeps.
func (c *Code) DecodeSoft(llr []float64, maxIter int, minSum bool) ([]byte, []float64, bool) {
	L := append([]float64(nil), llr...)
	initial := append([]float64(nil), llr...)

	decisions := make([]byte, c.N)
	for iter := 0; iter < maxIter; iter++ {
		updated := append([]float64(nil), initial...)

		for row := 0; row < c.M; row++ {
			vars := c.rowCols[row]
			for _, v := range vars {
				var message float64
				if len(vars) > 1 {
					if minSum {
						sign := 1.0
						minMag := math.Inf(1)
						for _, u := range vars {
							if u == v {
								continue
							}
							if L[u] < 0 {
								sign = -sign
							}
							if mag := math.Abs(L[u]); mag < minMag {
								minMag = mag
							}
						}
						message = sign * minMag * minSumAlpha
					} else {
						tanhProd := 1.0
						for _, u := range vars {
							if u == v {
								continue
							}
							tanhProd *= math.Tanh(L[u] / 2)
						}
						if tanhProd > clampTanh {
							tanhProd = clampTanh
						} else if tanhProd < -clampTanh {
							tanhProd = -clampTanh
						}
						message = 2 * math.Atanh(tanhProd)
					}
				}
				updated[v] += message
			}
		}
		L = updated

		for j := 0; j < c.N; j++ {
			if L[j] < 0 {
				decisions[j] = 1
			} else {
				decisions[j] = 0
			}
		}
		if syndromeWeight(c.syndrome(decisions)) == 0 {
			return append([]byte(nil), decisions[:c.K]...), append([]float64(nil), L...), true
		}
	}
	return append([]byte(nil), decisions[:c.K]...), append([]float64(nil), L...), false
}
