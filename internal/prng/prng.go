// Package prng implements the deterministic, manifest-recordable PRNG used
// by the LDPC matrix generator and the interleaver: a ChaCha20 keystream
// reinterpreted as a counter-based uint64 stream, seeded from a single
// 64-bit integer so two independent implementations agree (see DESIGN
// NOTES in spec.md: "A counter-based stream cipher ... is recommended").
package prng

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Name is the PRNG family recorded in the manifest.
const Name = "chacha20ctr"

// Source is a seedable, restartable byte/uint64 stream. It is never
// persisted across runs — only the seed is; a fresh Source regenerates the
// identical stream from the same seed (§5 resource policy).
type Source struct {
	cipher *chacha20.Cipher
	seed   uint64
	buf    [64]byte
	pos    int
}

// New derives a Source from a 64-bit seed. The seed is expanded into a
// 32-byte ChaCha20 key and a 12-byte nonce by simple deterministic
// byte-layout, since the only requirement is that encoder and decoder derive
// the same keystream from the same manifest-recorded seed, not that the
// seed be a secret key.
func New(seed uint64) *Source {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(key[0:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], seed^0x9E3779B97F4A7C15)
	binary.LittleEndian.PutUint64(key[16:24], ^seed)
	binary.LittleEndian.PutUint64(key[24:32], seed+0xD1B54A32D192ED03)
	binary.LittleEndian.PutUint32(nonce[0:4], uint32(seed))
	binary.LittleEndian.PutUint32(nonce[4:8], uint32(seed>>32))

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// key/nonce are fixed-size arrays matching chacha20's required
		// sizes exactly, so this cannot fail.
		panic(err)
	}
	s := &Source{cipher: c, seed: seed}
	s.pos = len(s.buf) // force a refill on first read
	return s
}

// Seed returns the seed this Source was constructed from.
func (s *Source) Seed() uint64 { return s.seed }

func (s *Source) refill() {
	var zero [64]byte
	s.cipher.XORKeyStream(s.buf[:], zero[:])
	s.pos = 0
}

// Uint64 returns the next 64-bit value from the stream.
func (s *Source) Uint64() uint64 {
	if s.pos+8 > len(s.buf) {
		s.refill()
	}
	v := binary.LittleEndian.Uint64(s.buf[s.pos : s.pos+8])
	s.pos += 8
	return v
}

// Intn returns a uniform value in [0, n) for n > 0, using Lemire's
// multiply-shift reduction with rejection of the biased low range, so the
// distribution stays uniform regardless of n.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("prng: Intn called with n <= 0")
	}
	bound := uint64(n)
	for {
		x := s.Uint64()
		hi, lo := bits64Mul(x, bound)
		if lo < (-bound % bound) {
			continue
		}
		return int(hi)
	}
}

// bits64Mul returns the high and low 64 bits of x*y.
func bits64Mul(x, y uint64) (hi, lo uint64) {
	const mask32 = 1<<32 - 1
	x0, x1 := x&mask32, x>>32
	y0, y1 := y&mask32, y>>32
	t := x0 * y0
	w0 := t & mask32
	k := t >> 32
	t = x1*y0 + k
	w1 := t & mask32
	w2 := t >> 32
	t = x0*y1 + w1
	k = t >> 32
	lo = (t << 32) | w0
	hi = x1*y1 + w2 + k
	return hi, lo
}

// Float64 returns a uniform value in [0, 1), matching the precision
// convention of math/rand's Float64 (53 bits of mantissa).
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Permutation returns a uniformly random permutation of [0, n) via
// Fisher–Yates, as required by §4.6 ("uniform Fisher–Yates over a named
// deterministic PRNG").
func (s *Source) Permutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}
