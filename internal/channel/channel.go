// Package channel implements C11: a deterministic damage-injection harness
// for exercising the error-correction stack under controlled loss and noise,
// used by the simulate subcommand and by robustness tests (§8).
package channel

import (
	"context"
	"math"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/geometry"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/prng"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/voxel"
)

// DamageType names one kind of injected damage, recorded in Report.
type DamageType string

const (
	DamageBitflip          DamageType = "bitflip"
	DamageTileLoss         DamageType = "tile_loss"
	DamagePlaneErasure     DamageType = "plane_erasure"
	DamageCalibrationDrift DamageType = "calibration_drift"
	DamageGaussianNoise    DamageType = "gaussian_noise"
)

// Model is a seeded source of reproducible damage.
type Model struct {
	src  *prng.Source
	seed uint64
}

// New returns a Model whose damage is fully determined by seed: the same
// seed reproduces byte-identical damage across runs (§8).
func New(seed uint64) *Model {
	return &Model{src: prng.New(seed), seed: seed}
}

// tileSeed derives a sub-seed for a tile's own noise stream from the
// model's seed and the tile's (plane, tile) identity — not from goroutine
// scheduling — so per-tile noise fan-out stays deterministic under
// concurrency (§5, §8).
func (m *Model) tileSeed(h geometry.Header) uint64 {
	return m.seed ^ uint64(uint32(h.PlaneID))<<32 ^ uint64(uint32(h.TileID))
}

// ApplyBitflips flips each bit in bits independently with probability p.
func (m *Model) ApplyBitflips(bits []byte, p float64) []byte {
	if p <= 0 {
		return append([]byte(nil), bits...)
	}
	out := make([]byte, len(bits))
	copy(out, bits)
	for i := range out {
		if m.src.Float64() < p {
			out[i] ^= 1
		}
	}
	return out
}

// ApplyTileLoss drops a uniformly chosen lossFraction of tiles, returning
// the survivors and the dropped tiles' global (plane_id, tile_id) indices.
func (m *Model) ApplyTileLoss(tiles []geometry.Tile, lossFraction float64) (survivors []geometry.Tile, lost []geometry.Header) {
	if lossFraction <= 0 || len(tiles) == 0 {
		return append([]geometry.Tile(nil), tiles...), nil
	}
	nLost := int(float64(len(tiles)) * lossFraction)
	dropped := make(map[int]bool, nLost)
	for len(dropped) < nLost && len(dropped) < len(tiles) {
		dropped[m.src.Intn(len(tiles))] = true
	}
	for i, t := range tiles {
		if dropped[i] {
			lost = append(lost, t.Header)
			continue
		}
		survivors = append(survivors, t)
	}
	return survivors, lost
}

// ApplyPlaneErasure drops every tile belonging to a uniformly chosen
// planeFraction of planes — a coarser, spatially-correlated loss pattern
// than ApplyTileLoss's independent per-tile sampling.
func (m *Model) ApplyPlaneErasure(tiles []geometry.Tile, planes int, planeFraction float64) (survivors []geometry.Tile, lostPlanes []int) {
	if planeFraction <= 0 || planes == 0 {
		return append([]geometry.Tile(nil), tiles...), nil
	}
	nLost := int(float64(planes) * planeFraction)
	dropped := make(map[int]bool, nLost)
	for len(dropped) < nLost && len(dropped) < planes {
		dropped[m.src.Intn(planes)] = true
	}
	for p := range dropped {
		lostPlanes = append(lostPlanes, p)
	}
	for _, t := range tiles {
		if dropped[t.Header.PlaneID] {
			continue
		}
		survivors = append(survivors, t)
	}
	return survivors, lostPlanes
}

// gaussianFrom draws one N(0, sigma) sample via the Box–Muller transform
// from src, so callers can supply a tile-local stream instead of the
// Model's shared one when running concurrently.
func gaussianFrom(src *prng.Source, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	u1 := src.Float64()
	if u1 <= 0 {
		u1 = 1e-300
	}
	u2 := src.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return z * sigma
}

// gaussian draws one N(0, sigma) sample from the Model's own shared stream;
// used only by the sequential damage stages (tile loss, drift) that never
// run concurrently with each other.
func (m *Model) gaussian(sigma float64) float64 {
	return gaussianFrom(m.src, sigma)
}

// DriftParams is a single systematic calibration-drift sample, drawn once
// per Simulate call and applied uniformly to every voxel, matching the
// original channel model's "one bad calibration run" semantics rather than
// per-voxel independent error.
type DriftParams struct {
	AngleOffsetDeg float64
	Gain           float64
}

// rollDrift draws one DriftParams sample: a fixed systematic angle offset
// plus a multiplicative gain error with standard deviation gainDriftFrac.
func (m *Model) rollDrift(angleOffsetDeg, gainDriftFrac float64) DriftParams {
	return DriftParams{
		AngleOffsetDeg: angleOffsetDeg,
		Gain:           1.0 + m.gaussian(gainDriftFrac),
	}
}

func applyDrift(v voxel.Voxel, d DriftParams) voxel.Voxel {
	return voxel.Voxel{Angle: v.Angle + d.AngleOffsetDeg, Retardance: v.Retardance * d.Gain}
}

func applyNoiseFrom(src *prng.Source, v voxel.Voxel, angleSigma, retardanceSigma float64) voxel.Voxel {
	r := v.Retardance + gaussianFrom(src, retardanceSigma)
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return voxel.Voxel{Angle: v.Angle + gaussianFrom(src, angleSigma), Retardance: r}
}

// Options bundles every damage knob Simulate understands; a zero value
// leaves the archive untouched.
type Options struct {
	TileLossFraction     float64
	BitflipProb          float64
	AngleDriftDeg        float64
	GainDriftFrac        float64
	AngleNoiseSigma      float64
	RetardanceNoiseSigma float64
}

// Report summarizes what Simulate actually did, for the simulate
// subcommand's output and for robustness-sweep bookkeeping (§8).
type Report struct {
	TilesLost        int
	ExpectedBitflips int
	AngleDriftDeg    float64
	AngleNoiseSigma  float64
	Applied          []DamageType
}

// Simulate applies tile loss, then per-symbol optical noise (calibration
// drift and/or Gaussian measurement noise via table's true voxel physics),
// then bit flips, in that order — mirroring the original channel's damage
// ordering ("tile loss first, since it's the coarsest-grained"). Symbols in
// lost tiles are reported absent rather than corrupted further.
func (m *Model) Simulate(tiles []geometry.Tile, table voxel.Table, opts Options) ([]geometry.Tile, Report) {
	survivors, lostHeaders := m.ApplyTileLoss(tiles, opts.TileLossFraction)
	report := Report{
		TilesLost:       len(lostHeaders),
		AngleDriftDeg:   opts.AngleDriftDeg,
		AngleNoiseSigma: opts.AngleNoiseSigma,
	}
	if len(lostHeaders) > 0 {
		report.Applied = append(report.Applied, DamageTileLoss)
	}
	if opts.AngleDriftDeg != 0 || opts.GainDriftFrac != 0 {
		report.Applied = append(report.Applied, DamageCalibrationDrift)
	}
	if opts.AngleNoiseSigma != 0 || opts.RetardanceNoiseSigma != 0 {
		report.Applied = append(report.Applied, DamageGaussianNoise)
	}

	drift := m.rollDrift(opts.AngleDriftDeg, opts.GainDriftFrac)
	totalBits := 0
	for _, t := range survivors {
		totalBits += len(t.Symbols) * table.BitsPerVoxel
	}

	// Per-tile noise injection round-trips every symbol through the
	// voxel table's real physics (Encode, then optical damage, then
	// DecodeSoft) independently of every other tile, so it can fan out
	// the same way the pipeline's per-shard LDPC stages do (§5). Each
	// tile gets its own noise stream derived from its (plane, tile)
	// identity rather than sharing the Model's stream, so the result is
	// identical regardless of goroutine scheduling.
	noisy, _ := geometry.MapTilesConcurrently(context.Background(), survivors, func(t geometry.Tile) (geometry.Tile, error) {
		tileSrc := prng.New(m.tileSeed(t.Header))
		symbols := make([]int, len(t.Symbols))
		for j, sym := range t.Symbols {
			v := table.Encode(sym)
			if opts.AngleDriftDeg != 0 || opts.GainDriftFrac != 0 {
				v = applyDrift(v, drift)
			}
			if opts.AngleNoiseSigma != 0 || opts.RetardanceNoiseSigma != 0 {
				v = applyNoiseFrom(tileSrc, v, opts.AngleNoiseSigma, opts.RetardanceNoiseSigma)
			}
			decoded, _ := table.DecodeSoft(v)
			symbols[j] = decoded
		}
		return geometry.Tile{Header: t.Header, Symbols: symbols}, nil
	})

	if opts.BitflipProb > 0 {
		for i, t := range noisy {
			bits := make([]byte, 0, len(t.Symbols)*table.BitsPerVoxel)
			for _, sym := range t.Symbols {
				for b := table.BitsPerVoxel - 1; b >= 0; b-- {
					bits = append(bits, byte((sym>>uint(b))&1))
				}
			}
			flipped := m.ApplyBitflips(bits, opts.BitflipProb)
			symbols := make([]int, len(t.Symbols))
			for j := range symbols {
				sym := 0
				for b := 0; b < table.BitsPerVoxel; b++ {
					sym = (sym << 1) | int(flipped[j*table.BitsPerVoxel+b])
				}
				symbols[j] = sym
			}
			noisy[i] = geometry.Tile{Header: t.Header, Symbols: symbols}
		}
		report.ExpectedBitflips = int(float64(totalBits) * opts.BitflipProb)
		report.Applied = append(report.Applied, DamageBitflip)
	}

	return noisy, report
}
