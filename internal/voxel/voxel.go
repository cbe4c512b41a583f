// Package voxel implements C7: mapping between packed bit groups and 5D
// optical voxel properties (orientation angle, retardance level), with
// independent Gray coding of each half so that the physically nearest
// neighbor in angle or retardance differs by exactly one bit.
package voxel

import (
	"fmt"
	"math/bits"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Mode names recorded in the manifest.
const (
	Mode3Bit = "3bit"
	Mode5Bit = "5bit"
)

// Table describes one voxel encoding mode (§4.7).
type Table struct {
	Mode         string
	BitsPerVoxel int
	Orientations int // O
	Retardances  int // R
	Angles       []float64
	RetardanceΛ  []float64
}

var tables = map[string]Table{
	Mode3Bit: {
		Mode:         Mode3Bit,
		BitsPerVoxel: 3,
		Orientations: 4,
		Retardances:  2,
		Angles:       []float64{0, 45, 90, 135},
		RetardanceΛ:  []float64{0.25, 0.75},
	},
	Mode5Bit: {
		Mode:         Mode5Bit,
		BitsPerVoxel: 5,
		Orientations: 8,
		Retardances:  4,
		Angles:       []float64{0, 22.5, 45, 67.5, 90, 112.5, 135, 157.5},
		RetardanceΛ:  []float64{0.25, 0.5, 0.75, 1.0},
	},
}

// Lookup returns the named mode's table.
func Lookup(mode string) (Table, error) {
	t, ok := tables[mode]
	if !ok {
		return Table{}, fmt.Errorf("%w: voxel mode %q", ccerrors.ErrUnknownProfile, mode)
	}
	return t, nil
}

func (t Table) orientationBits() int { return bits.Len(uint(t.Orientations - 1)) }

// grayEncode maps a binary index to its reflected Gray code.
func grayEncode(k int) int { return k ^ (k >> 1) }

// grayDecode inverts grayEncode.
func grayDecode(g int) int {
	b := g
	for mask := b >> 1; mask != 0; mask >>= 1 {
		b ^= mask
	}
	return b
}

// Voxel is one emitted physical symbol: an orientation angle and a
// retardance level.
type Voxel struct {
	Angle      float64
	Retardance float64
}

// PackBits groups bits (one byte per bit, 0/1) into symbols of
// t.BitsPerVoxel bits each, MSB first, zero-padding the final group. It
// returns the symbols and the pad length so UnpackBits can trim it back off.
func (t Table) PackBits(bits []byte) (symbols []int, pad int) {
	b := t.BitsPerVoxel
	pad = (b - len(bits)%b) % b
	padded := make([]byte, len(bits)+pad)
	copy(padded, bits)

	symbols = make([]int, len(padded)/b)
	for i := 0; i < len(symbols); i++ {
		sym := 0
		for j := 0; j < b; j++ {
			sym = (sym << 1) | int(padded[i*b+j])
		}
		symbols[i] = sym
	}
	return symbols, pad
}

// UnpackBits reverses PackBits, trimming pad bits off the tail.
func (t Table) UnpackBits(symbols []int, pad int) []byte {
	b := t.BitsPerVoxel
	out := make([]byte, 0, len(symbols)*b)
	for _, sym := range symbols {
		for j := b - 1; j >= 0; j-- {
			out = append(out, byte((sym>>j)&1))
		}
	}
	if pad > 0 && pad <= len(out) {
		out = out[:len(out)-pad]
	}
	return out
}

// Encode converts one b-bit symbol into its voxel. The symbol's low
// orientationBits() bits select the orientation half, the remaining high
// bits select the retardance half; each half is independently Gray-coded
// so the physically adjacent level differs by one raw bit (§4.7).
func (t Table) Encode(symbol int) Voxel {
	oBits := t.orientationBits()
	oRaw := symbol & (t.Orientations - 1)
	rRaw := symbol >> oBits

	oPhys := grayDecode(oRaw) % t.Orientations
	rPhys := grayDecode(rRaw) % t.Retardances
	return Voxel{Angle: t.Angles[oPhys], Retardance: t.RetardanceΛ[rPhys]}
}

// DecodeHard snaps a measured voxel to the nearest reference angle and
// retardance, Gray-decodes each half, and reassembles the symbol.
func (t Table) DecodeHard(v Voxel) int {
	oPhys, _ := t.nearestOrientation(v.Angle)
	rPhys, _ := t.nearestRetardance(v.Retardance)
	oRaw := grayEncode(oPhys)
	rRaw := grayEncode(rPhys)
	return (rRaw << t.orientationBits()) | oRaw
}

// DecodeSoft behaves like DecodeHard but also returns a reliability in
// (0, 1], derived from the combined distance to the chosen reference
// (§4.7): `1 / (1 + d)`, where d weights retardance distance 100x, matching
// the relative sensitivity of the two physical channels.
func (t Table) DecodeSoft(v Voxel) (symbol int, reliability float64) {
	oPhys, oDist := t.nearestOrientation(v.Angle)
	rPhys, rDist := t.nearestRetardance(v.Retardance)
	oRaw := grayEncode(oPhys)
	rRaw := grayEncode(rPhys)
	symbol = (rRaw << t.orientationBits()) | oRaw

	d := oDist + rDist*100
	reliability = 1.0 / (1.0 + d)
	return symbol, reliability
}

func (t Table) nearestOrientation(angle float64) (idx int, distance float64) {
	best, bestDist := 0, angleDistance(angle, t.Angles[0])
	for i := 1; i < len(t.Angles); i++ {
		d := angleDistance(angle, t.Angles[i])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func (t Table) nearestRetardance(r float64) (idx int, distance float64) {
	best, bestDist := 0, absf(r-t.RetardanceΛ[0])
	for i := 1; i < len(t.RetardanceΛ); i++ {
		d := absf(r - t.RetardanceΛ[i])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// angleDistance is the orientation distance mod 180 degrees (angles wrap:
// 0 and 180 are the same physical orientation).
func angleDistance(a, ref float64) float64 {
	d1 := absf(a - ref)
	d2 := absf(a - ref + 180)
	d3 := absf(a - ref - 180)
	min := d1
	if d2 < min {
		min = d2
	}
	if d3 < min {
		min = d3
	}
	return min
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
