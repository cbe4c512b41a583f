// Package interleave implements C6: symbol-level interleaving for burst
// error protection. Block mode applies a seeded permutation; convolutional
// mode row-delays a reshaped matrix for streaming contexts.
package interleave

import (
	"fmt"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/prng"
)

// BlockInterleave returns the Fisher–Yates permutation π for a stream of
// length n from src, and the permuted copy of data under it: out[i] =
// data[π[i]].
func BlockInterleave(data []int, src *prng.Source) (out []int, perm []int) {
	perm = src.Permutation(len(data))
	out = make([]int, len(data))
	for i, p := range perm {
		out[i] = data[p]
	}
	return out, perm
}

// BlockDeinterleave reverses BlockInterleave given the same permutation:
// out[π[i]] = data[i], i.e. scatter by π (§4.6).
func BlockDeinterleave(data []int, perm []int) ([]int, error) {
	if len(data) != len(perm) {
		return nil, fmt.Errorf("%w: interleaved data length %d does not match permutation length %d", ccerrors.ErrMalformedBlob, len(data), len(perm))
	}
	out := make([]int, len(data))
	for i, p := range perm {
		out[p] = data[i]
	}
	return out, nil
}

// Invert returns π⁻¹ such that inv[π[i]] = i, computed by scatter.
func Invert(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// ConvolutionalInterleave row-delays data reshaped into a depth-row matrix:
// row i is cyclically rotated by i * (cols/depth) positions. The result
// keeps the zero padding, so its length is depth * ceil(n/depth). Used by
// streaming contexts; the default pipeline uses BlockInterleave instead
// (§4.6).
func ConvolutionalInterleave(data []int, depth int) []int {
	if depth <= 0 {
		depth = 1
	}
	n := len(data)
	cols := (n + depth - 1) / depth
	if cols == 0 {
		cols = 1
	}
	padded := make([]int, depth*cols)
	copy(padded, data)

	out := make([]int, 0, len(padded))
	unit := cols / depth
	for row := 0; row < depth; row++ {
		rowData := padded[row*cols : (row+1)*cols]
		delay := row * unit
		out = append(out, rotateLeft(rowData, -delay)...)
	}
	return out
}

// ConvolutionalDeinterleave reverses ConvolutionalInterleave for the same
// original length n and depth.
func ConvolutionalDeinterleave(data []int, n, depth int) []int {
	if depth <= 0 {
		depth = 1
	}
	cols := (n + depth - 1) / depth
	if cols == 0 {
		cols = 1
	}
	padded := make([]int, depth*cols)
	copy(padded, data)

	matrix := make([][]int, depth)
	unit := cols / depth
	for row := 0; row < depth; row++ {
		rowData := padded[row*cols : (row+1)*cols]
		delay := row * unit
		matrix[row] = rotateLeft(rowData, delay)
	}

	out := make([]int, 0, depth*cols)
	for row := 0; row < depth; row++ {
		out = append(out, matrix[row]...)
	}
	return out[:n]
}

// rotateLeft returns a copy of s rotated left by k positions (negative k
// rotates right).
func rotateLeft(s []int, k int) []int {
	n := len(s)
	if n == 0 {
		return s
	}
	k = ((k % n) + n) % n
	out := make([]int, n)
	copy(out, s[k:])
	copy(out[n-k:], s[:k])
	return out
}
