// Package pipeline implements C10: the orchestrator that composes packer,
// compressor, rs, ldpc, interleave, voxel, geometry, merkle, and manifest
// into the full encode/decode chain (§5, §7).
//
// Encode: pack -> compress -> RS-shard -> LDPC-encode each shard in
// n-bit blocks -> concatenate all encoded bits -> interleave with seed ->
// bits -> symbols -> voxels -> tile/plane layout -> Merkle over shards ->
// manifest.
//
// Decode: read tiles in (plane, tile) order -> voxels -> symbols ->
// bits -> deinterleave -> split into LDPC blocks -> LDPC decode (soft if
// reliability available, else hard) -> repack to bytes -> block RS repair
// -> RS decode treating every shard that block RS could not repair as an
// erasure -> Merkle verify -> decompress -> unpack -> per-file SHA-256
// verification.
package pipeline

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/calog"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/compressor"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/geometry"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/interleave"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ldpc"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/manifest"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/merkle"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/packer"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/prng"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/rs"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/voxel"
)

// Profile names (§4.10).
const (
	ProfileNameA = "A"
	ProfileNameB = "B"
)

// Profile bundles every codec-level knob the two named profiles fix.
type Profile struct {
	Name             string
	VoxelMode        string
	LDPCRate         float64
	RSOverheadFrac   float64
	InterleaveSpan   int
	InterleaveDepth  int
	CompressionCodec string
	CompressionLevel int
}

// ProfileA is "Conservative": 3-bit voxels, rate-0.75 LDPC, 20% RS overhead.
var ProfileA = Profile{
	Name: "Conservative", VoxelMode: voxel.Mode3Bit, LDPCRate: 0.75,
	RSOverheadFrac: 0.20, InterleaveSpan: 10000, InterleaveDepth: 16,
	CompressionCodec: compressor.CodecZstd, CompressionLevel: 6,
}

// ProfileB is "Aggressive": 5-bit voxels, rate-0.83 LDPC, 12% RS overhead.
var ProfileB = Profile{
	Name: "Aggressive", VoxelMode: voxel.Mode5Bit, LDPCRate: 0.83,
	RSOverheadFrac: 0.12, InterleaveSpan: 5000, InterleaveDepth: 8,
	CompressionCodec: compressor.CodecZstd, CompressionLevel: 9,
}

// LookupProfile resolves "A" or "B" to its Profile.
func LookupProfile(name string) (Profile, error) {
	switch name {
	case ProfileNameA:
		return ProfileA, nil
	case ProfileNameB:
		return ProfileB, nil
	default:
		return Profile{}, fmt.Errorf("%w: profile %q", ccerrors.ErrUnknownProfile, name)
	}
}

const (
	shardSize  = 4096
	ldpcN      = ldpc.DefaultN
	maxLDPCIter = 50
	// interleaveSeedSalt derives the interleaver's seed from the archive
	// seed so it differs from the LDPC matrix seed without needing a
	// second user-supplied value (§4.9's "prng, seed" is recorded as the
	// derived value, not the raw archive seed).
	interleaveSeedSalt = 0x9E3779B97F4A7C15
)

// Options controls one Encode call.
type Options struct {
	Seed       uint64
	RSScheme   string // defaults to rs.SchemeReedSolomon
	SigningKey ed25519.PrivateKey
	Now        time.Time
}

// Archive is the encoded-but-not-yet-serialized result of Encode: the
// manifest plus the physical tile layout.
type Archive struct {
	Manifest *manifest.Manifest
	Tiles    []geometry.Tile
}

// Encode runs the full chain over root's contents under profile.
func Encode(root string, profile Profile, opts Options) (*Archive, error) {
	if opts.RSScheme == "" {
		opts.RSScheme = rs.SchemeReedSolomon
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	blob, entries, err := packer.Pack(root)
	if err != nil {
		return nil, err
	}
	calog.Debugf("pipeline", "packed %d files (%d bytes)", len(entries), len(blob))

	compressed, compInfo, err := compressor.Compress(blob, profile.CompressionCodec, profile.CompressionLevel)
	if err != nil {
		return nil, err
	}

	dataShards := (len(compressed) + shardSize - 1) / shardSize
	if dataShards == 0 {
		dataShards = 1
	}
	parityShards := int(float64(dataShards)*profile.RSOverheadFrac + 0.5)
	if parityShards < 1 {
		parityShards = 1
	}
	block, err := rs.Encode(compressed, dataShards, parityShards, opts.RSScheme)
	if err != nil {
		return nil, err
	}
	calog.Debugf("pipeline", "rs: %d data + %d parity shards (scheme=%s)", dataShards, parityShards, opts.RSScheme)

	ldpcK := int(float64(ldpcN) * profile.LDPCRate)
	code, err := ldpc.New(ldpcN, ldpcK, opts.Seed)
	if err != nil {
		return nil, err
	}

	// Each shard first gets the classic block RS(255,223) protection of
	// §4.4, independent of the shard fan-out above, before being split
	// into LDPC blocks — a concatenated inner/outer code pair: LDPC fixes
	// most bit errors; any residual byte corruption it can't converge on
	// still has a shot at Block RS's own, separate error correction at
	// decode time.
	protectedBits := rs.BlockEncodedSizeFor(block.ShardSize) * 8
	ldpcPad := 0
	if protectedBits%ldpcK != 0 {
		ldpcPad = ldpcK - protectedBits%ldpcK
	}

	// Per-shard LDPC encoding is independent work (§5 permits fan-out
	// here); results are written into pre-sized per-shard slots and
	// concatenated in shard order afterward, so output stays
	// deterministic regardless of goroutine scheduling.
	shardCodewords := make([][]int, len(block.Shards))
	g, _ := errgroup.WithContext(context.Background())
	for idx, shard := range block.Shards {
		idx, shard := idx, shard
		g.Go(func() error {
			protected, _ := rs.BlockEncode(shard)
			shardBits := bytesToBits(protected)
			var bits []int
			for i := 0; i < len(shardBits); i += ldpcK {
				end := i + ldpcK
				var blockBits []byte
				if end > len(shardBits) {
					blockBits = make([]byte, ldpcK)
					copy(blockBits, shardBits[i:])
				} else {
					blockBits = shardBits[i:end]
				}
				codeword, err := code.Encode(blockBits)
				if err != nil {
					return ccerrors.Wrap("ldpc shard encode", idx, len(block.Shards), err)
				}
				bits = append(bits, bytesToInts(codeword)...)
			}
			shardCodewords[idx] = bits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var allBits []int
	for _, bits := range shardCodewords {
		allBits = append(allBits, bits...)
	}

	interleaveSeed := opts.Seed ^ interleaveSeedSalt
	src := prng.New(interleaveSeed)
	interleaved, perm := interleave.BlockInterleave(allBits, src)
	_ = perm // regenerated deterministically at decode time, never persisted (§5)

	table, err := voxel.Lookup(profile.VoxelMode)
	if err != nil {
		return nil, err
	}
	symbols, voxelPad := table.PackBits(intsToBits(interleaved))

	tiles, plan := geometry.Layout(symbols, profile.Name)

	shardHashes := make([][]byte, len(block.Shards))
	copy(shardHashes, block.Shards)
	merkleTree := merkle.Build(shardHashes, merkle.DefaultFanout)

	m := manifest.New(opts.Now.Format(time.RFC3339), profile.Name)
	m.Encoding.ProfileParams = profile
	m.Encoding.Compression = manifest.CompressionInfo{Codec: compInfo.Codec, Info: compInfo}
	m.Encoding.ECC.LDPC = manifest.LDPCParams{N: ldpcN, K: ldpcK, Rate: profile.LDPCRate, SeedH: opts.Seed, MaxIter: maxLDPCIter}
	m.Encoding.ECC.ReedSolomon = manifest.RSParams{N: dataShards + parityShards, K: dataShards, ShardSize: block.ShardSize, Scheme: opts.RSScheme}
	m.Encoding.Voxel = manifest.VoxelParams{
		Mode: table.Mode, BitsPerVoxel: table.BitsPerVoxel, Orientations: table.Orientations,
		RetardanceLevels: table.Retardances, Angles: table.Angles, RetardanceΛ: table.RetardanceΛ,
	}
	m.Encoding.Interleaving = manifest.InterleavingParams{PRNG: prng.Name, Seed: interleaveSeed, Span: profile.InterleaveSpan, Depth: profile.InterleaveDepth}
	m.Geometry = manifest.Geometry{TilesX: geometry.MaxTilesPerPlane, TilesY: 1, Planes: plan.Planes, TotalTiles: plan.TotalTiles, TotalSymbols: plan.TotalSymbols}
	for _, e := range entries {
		m.Files = append(m.Files, manifest.FileEntry{Path: e.Path, Size: int64(e.Size), SHA256: hex.EncodeToString(e.SHA256[:])})
	}
	m.Integrity.MerkleRoot = hex.EncodeToString(merkleRootBytes(merkleTree.Root()))
	m.VoxelPad = voxelPad
	m.LDPCPad = ldpcPad

	if _, err := m.Save(); err != nil {
		return nil, err
	}
	if opts.SigningKey != nil {
		if err := m.Sign(opts.SigningKey); err != nil {
			return nil, err
		}
	}

	return &Archive{Manifest: m, Tiles: tiles}, nil
}

// Result is the outcome of Decode: the recovered file entries and any
// non-fatal per-file hash mismatches.
type Result struct {
	Files    []packer.Entry
	Warnings []string
}

// Decode reconstructs the original folder contents from m and tiles (a
// possibly-incomplete, possibly out-of-order subset) into outDir.
func Decode(m *manifest.Manifest, tiles []geometry.Tile, outDir string, soft bool) (*Result, error) {
	symbols, present := geometry.Flatten(tiles, m.Geometry.TotalTiles, m.Geometry.TotalSymbols)

	table, err := voxel.Lookup(m.Encoding.Voxel.Mode)
	if err != nil {
		return nil, err
	}

	bits := table.UnpackBits(symbols, m.VoxelPad)
	known := expandPresence(present, table.BitsPerVoxel, m.VoxelPad)

	interleaveSeed := m.Encoding.Interleaving.Seed
	src := prng.New(interleaveSeed)
	perm := src.Permutation(len(bits))

	deinterleavedInts, err := interleave.BlockDeinterleave(bitsToInts(bits), perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ccerrors.ErrMalformedBlob, err)
	}
	knownDeinterleaved, err := interleave.BlockDeinterleave(boolsToInts(known), perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ccerrors.ErrMalformedBlob, err)
	}

	code, err := ldpc.New(m.Encoding.ECC.LDPC.N, m.Encoding.ECC.LDPC.K, m.Encoding.ECC.LDPC.SeedH)
	if err != nil {
		return nil, err
	}

	totalShards := m.Encoding.ECC.ReedSolomon.N
	shardSizeBytes := m.Encoding.ECC.ReedSolomon.ShardSize
	blockPad := rs.BlockPadFor(shardSizeBytes)
	protectedSize := rs.BlockEncodedSizeFor(shardSizeBytes)
	shardBitLen := protectedSize * 8
	blocksPerShard := (shardBitLen + code.K - 1) / code.K
	encodedBitsPerShard := blocksPerShard * code.N

	rsBlock := &rs.Block{
		Scheme: m.Encoding.ECC.ReedSolomon.Scheme, DataShards: m.Encoding.ECC.ReedSolomon.K,
		ParityShards: totalShards - m.Encoding.ECC.ReedSolomon.K, ShardSize: shardSizeBytes,
		OriginalSize: 0, // filled in after compressor metadata is known; see below
		Shards:       make([][]byte, totalShards),
	}
	shardPresent := make([]bool, totalShards)

	// Every shard occupies a fixed-size slot in the interleaved stream, so
	// each shard's decode is independent of every other's and can fan out
	// the same way Encode's did; writes land in this shard's own slots of
	// rsBlock.Shards/shardPresent, so no ordering coordination is needed.
	g, _ := errgroup.WithContext(context.Background())
	for s := 0; s < totalShards; s++ {
		s := s
		g.Go(func() error {
			offset := s * encodedBitsPerShard
			if offset+encodedBitsPerShard > len(deinterleavedInts) {
				shardPresent[s] = false
				return nil
			}
			shardBits := deinterleavedInts[offset : offset+encodedBitsPerShard]
			shardKnown := knownDeinterleaved[offset : offset+encodedBitsPerShard]

			ldpcOK := true
			var decodedBits []byte
			for b := 0; b < blocksPerShard; b++ {
				blockBits := shardBits[b*code.N : (b+1)*code.N]
				blockKnown := shardKnown[b*code.N : (b+1)*code.N]

				var payload []byte
				var success bool
				if soft {
					llr := toLLR(blockBits, blockKnown)
					payload, _, success = code.DecodeSoft(llr, m.Encoding.ECC.LDPC.MaxIter, true)
				} else {
					payload, success = code.DecodeHard(intsToBits(blockBits), m.Encoding.ECC.LDPC.MaxIter)
				}
				if !success {
					ldpcOK = false
				}
				decodedBits = append(decodedBits, payload...)
			}
			if m.LDPCPad > 0 && m.LDPCPad <= len(decodedBits) {
				decodedBits = decodedBits[:len(decodedBits)-m.LDPCPad]
			}

			// Block RS gets a chance to repair a shard even when LDPC
			// didn't converge — it corrects its own, independent budget
			// of unknown-position byte errors (§4.4).
			repaired, blockErr := rs.BlockDecode(bitsToBytes(decodedBits), blockPad)
			if blockErr != nil {
				calog.Debugf("pipeline", "%v", ccerrors.Wrap("ldpc+blockrs shard decode", s, totalShards, blockErr))
				shardPresent[s] = false
				return nil
			}
			if !ldpcOK {
				calog.Debugf("pipeline", "shard %d: ldpc did not converge, block rs repaired residual errors", s)
			}
			shardPresent[s] = true
			rsBlock.Shards[s] = repaired
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	compInfo := compressor.Info{}
	if raw, ok := m.Encoding.Compression.Info.(compressor.Info); ok {
		compInfo = raw
	} else {
		compInfo = decodeCompressionInfo(m.Encoding.Compression.Info)
	}
	rsBlock.OriginalSize = compInfo.CompressedSize

	recovered, err := rs.Decode(rsBlock, shardPresent)
	if err != nil {
		return nil, ccerrors.Wrap("rs shard reconstruction", -1, totalShards, fmt.Errorf("%w: %v", ccerrors.ErrUncorrectableArchive, err))
	}

	// rs.Decode does not write reconstructed shards back into
	// rsBlock.Shards, so the root is rebuilt over a re-encoding of the
	// recovered bytes, which reproduces every data and parity shard.
	rebuilt, err := rs.Encode(recovered, rsBlock.DataShards, rsBlock.ParityShards, rsBlock.Scheme)
	if err != nil {
		return nil, ccerrors.Wrap("merkle verify", -1, totalShards, fmt.Errorf("%w: %v", ccerrors.ErrUncorrectableArchive, err))
	}
	rebuiltRoot := merkle.Build(rebuilt.Shards, merkle.DefaultFanout).Root()
	if hex.EncodeToString(merkleRootBytes(rebuiltRoot)) != m.Integrity.MerkleRoot {
		return nil, ccerrors.Wrap("merkle verify", -1, len(rebuilt.Shards), ccerrors.ErrUncorrectableArchive)
	}

	decompressed, err := compressor.Decompress(recovered, compInfo)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ccerrors.ErrIOFailure, err)
	}
	unpacked, err := packer.Unpack(decompressed, outDir)
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, fe := range m.Files {
		full := filepath.Join(outDir, filepath.FromSlash(fe.Path))
		data, err := os.ReadFile(full)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", fe.Path, err))
			continue
		}
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); got != fe.SHA256 {
			mismatch := &ccerrors.ChecksumMismatchError{Path: fe.Path, Expected: fe.SHA256, Actual: got}
			warnings = append(warnings, mismatch.Error())
		}
	}

	return &Result{Files: unpacked, Warnings: warnings}, nil
}

func merkleRootBytes(h merkle.Hash) []byte { return h[:] }

func bytesToBits(b []byte) []byte {
	out := make([]byte, len(b)*8)
	for i, by := range b {
		for j := 0; j < 8; j++ {
			out[i*8+j] = (by >> (7 - j)) & 1
		}
	}
	return out
}

func bitsToBytes(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit != 0 {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func bitsToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func intsToBits(xs []int) []byte {
	out := make([]byte, len(xs))
	for i, v := range xs {
		out[i] = byte(v)
	}
	return out
}

func boolsToInts(b []bool) []int {
	out := make([]int, len(b))
	for i, v := range b {
		if v {
			out[i] = 1
		}
	}
	return out
}

// expandPresence repeats each symbol's presence bit bitsPerVoxel times to
// align with the unpacked bit stream, then trims pad bits off the tail
// exactly like UnpackBits does for the data itself.
func expandPresence(present []bool, bitsPerVoxel, pad int) []bool {
	out := make([]bool, 0, len(present)*bitsPerVoxel)
	for _, p := range present {
		for i := 0; i < bitsPerVoxel; i++ {
			out = append(out, p)
		}
	}
	if pad > 0 && pad <= len(out) {
		out = out[:len(out)-pad]
	}
	return out
}

// toLLR builds per-bit log-likelihood ratios from decided bit values and a
// known/erased mask: known bits get a confident LLR, erased bits get zero
// (maximally unreliable), per §4.5/§4.7's reliability hand-off contract.
func toLLR(bits []int, known []int) []float64 {
	const confident = 5.0
	out := make([]float64, len(bits))
	for i, b := range bits {
		if known[i] == 0 {
			out[i] = 0
			continue
		}
		if b == 1 {
			out[i] = -confident
		} else {
			out[i] = confident
		}
	}
	return out
}

func decodeCompressionInfo(v interface{}) compressor.Info {
	m, ok := v.(map[string]interface{})
	if !ok {
		return compressor.Info{}
	}
	info := compressor.Info{}
	if s, ok := m["codec"].(string); ok {
		info.Codec = s
	}
	if n, ok := m["level"].(float64); ok {
		info.Level = int(n)
	}
	if n, ok := m["original_size"].(float64); ok {
		info.OriginalSize = int64(n)
	}
	if n, ok := m["compressed_size"].(float64); ok {
		info.CompressedSize = int64(n)
	}
	if n, ok := m["ratio"].(float64); ok {
		info.Ratio = n
	}
	return info
}
