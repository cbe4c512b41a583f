// Package rs implements C4: the outer erasure-coding layer. It encodes a
// byte stream into fixed data/parity shards and reconstructs it from any
// surviving subset, up to the scheme's erasure budget.
//
// Two schemes are supported, selected by name and recorded alongside the
// block so a decoder always knows how to interpret it:
//
//   - "reedsolomon": true GF(256) Reed-Solomon parity (default), tolerating
//     the loss of up to ParityShards shards.
//   - "xor": single-parity XOR, tolerating the loss of exactly one shard.
//     Kept for compatibility with lightweight decoders (§ DESIGN NOTES).
package rs

import (
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/calog"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Scheme names recorded in Block.Scheme and the manifest.
const (
	SchemeReedSolomon = "reedsolomon"
	SchemeXOR         = "xor"
)

// DefaultDataShards and DefaultParityShards reproduce the classic RS(255,223)
// block size of §4.4: 223 data symbols, 32 parity symbols, 255 total.
const (
	DefaultDataShards   = 223
	DefaultParityShards = 32
)

// Block is a self-describing erasure-coded unit: enough metadata to
// reconstruct the original bytes from any sufficient subset of Shards.
type Block struct {
	Scheme       string   `json:"scheme"`
	DataShards   int      `json:"data_shards"`
	ParityShards int      `json:"parity_shards"`
	ShardSize    int      `json:"shard_size"`
	OriginalSize int64    `json:"original_size"`
	Shards       [][]byte `json:"-"`
}

// Encode splits data into dataShards equal-length (zero-padded) shards and
// computes parityShards parity shards under scheme.
func Encode(data []byte, dataShards, parityShards int, scheme string) (*Block, error) {
	if dataShards <= 0 || parityShards < 0 {
		return nil, fmt.Errorf("%w: invalid shard counts %d/%d", ccerrors.ErrUnknownProfile, dataShards, parityShards)
	}

	shardSize := (len(data) + dataShards - 1) / dataShards
	if shardSize == 0 {
		shardSize = 1
	}
	shards := make([][]byte, dataShards+parityShards)
	for i := 0; i < dataShards; i++ {
		shard := make([]byte, shardSize)
		start := i * shardSize
		if start < len(data) {
			end := start + shardSize
			if end > len(data) {
				end = len(data)
			}
			copy(shard, data[start:end])
		}
		shards[i] = shard
	}
	for i := dataShards; i < dataShards+parityShards; i++ {
		shards[i] = make([]byte, shardSize)
	}

	switch scheme {
	case SchemeReedSolomon:
		if parityShards > 0 {
			enc, err := reedsolomon.New(dataShards, parityShards)
			if err != nil {
				return nil, fmt.Errorf("rs encoder: %w", err)
			}
			if err := enc.Encode(shards); err != nil {
				return nil, fmt.Errorf("rs encode: %w", err)
			}
		}
	case SchemeXOR:
		if parityShards > 1 {
			return nil, fmt.Errorf("%w: xor scheme supports at most one parity shard", ccerrors.ErrUnknownProfile)
		}
		if parityShards == 1 {
			xorInto(shards[dataShards], shards[:dataShards])
		}
	default:
		return nil, fmt.Errorf("%w: rs scheme %q", ccerrors.ErrUnknownProfile, scheme)
	}

	calog.Debugf("rs", "encoded %d bytes into %d data + %d parity shards (scheme=%s, shard_size=%d)",
		len(data), dataShards, parityShards, scheme, shardSize)

	return &Block{
		Scheme:       scheme,
		DataShards:   dataShards,
		ParityShards: parityShards,
		ShardSize:    shardSize,
		OriginalSize: int64(len(data)),
		Shards:       shards,
	}, nil
}

// Decode reconstructs the original data from b.Shards. present[i] == false
// (or a nil shard) marks shard i as erased. Decode returns
// ErrUncorrectableBlock if more shards are erased than the scheme can
// recover.
func Decode(b *Block, present []bool) ([]byte, error) {
	total := b.DataShards + b.ParityShards
	shards := make([][]byte, total)
	missing := 0
	for i := 0; i < total; i++ {
		if i < len(present) && !present[i] {
			missing++
			continue
		}
		if i >= len(b.Shards) || b.Shards[i] == nil {
			missing++
			continue
		}
		shards[i] = b.Shards[i]
	}

	switch b.Scheme {
	case SchemeReedSolomon:
		if missing > 0 {
			if missing > b.ParityShards {
				return nil, fmt.Errorf("%w: %d shards missing, scheme tolerates %d", ccerrors.ErrUncorrectableBlock, missing, b.ParityShards)
			}
			enc, err := reedsolomon.New(b.DataShards, b.ParityShards)
			if err != nil {
				return nil, fmt.Errorf("rs decoder: %w", err)
			}
			if err := enc.Reconstruct(shards); err != nil {
				return nil, fmt.Errorf("%w: %v", ccerrors.ErrUncorrectableBlock, err)
			}
		}
	case SchemeXOR:
		dataMissing := 0
		parityUsable := b.ParityShards == 1 && shards[b.DataShards] != nil
		missingIdx := -1
		for i := 0; i < b.DataShards; i++ {
			if shards[i] == nil {
				dataMissing++
				missingIdx = i
			}
		}
		switch {
		case dataMissing == 0:
			// Nothing to repair.
		case dataMissing == 1 && parityUsable:
			recovered := make([]byte, b.ShardSize)
			others := make([][]byte, 0, b.DataShards)
			for i := 0; i < b.DataShards; i++ {
				if i != missingIdx {
					others = append(others, shards[i])
				}
			}
			others = append(others, shards[b.DataShards])
			xorInto(recovered, others)
			shards[missingIdx] = recovered
		default:
			return nil, fmt.Errorf("%w: xor scheme cannot recover %d missing data shards", ccerrors.ErrUncorrectableBlock, dataMissing)
		}
	default:
		return nil, fmt.Errorf("%w: rs scheme %q", ccerrors.ErrUnknownProfile, b.Scheme)
	}

	out := make([]byte, 0, int64(b.DataShards)*int64(b.ShardSize))
	for i := 0; i < b.DataShards; i++ {
		out = append(out, shards[i]...)
	}
	if int64(len(out)) < b.OriginalSize {
		return nil, fmt.Errorf("%w: reconstructed %d bytes, expected %d", ccerrors.ErrUncorrectableBlock, len(out), b.OriginalSize)
	}
	return out[:b.OriginalSize], nil
}

func xorInto(dst []byte, shards [][]byte) {
	for _, s := range shards {
		for i := range dst {
			dst[i] ^= s[i]
		}
	}
}
