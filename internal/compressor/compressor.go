// Package compressor implements C2: stateless, bidirectional byte
// compression with a JSON-round-trippable codec descriptor.
package compressor

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/calog"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Codec names recorded in Info.Codec and in the manifest.
const (
	CodecZstd = "zstd"
	CodecXZ   = "xz"
	CodecNone = "none"
)

// Info is the codec descriptor of §3/§4.2: it must round-trip through JSON
// so the manifest can store it verbatim.
type Info struct {
	Codec          string  `json:"codec"`
	Level          int     `json:"level"`
	OriginalSize   int64   `json:"original_size"`
	CompressedSize int64   `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
}

// Compress applies codec at level to data and returns the compressed bytes
// plus a descriptor of the operation. Only zstd uses level; xz always runs
// with the library's default settings, though level is still recorded.
func Compress(data []byte, codec string, level int) ([]byte, Info, error) {
	var out []byte
	var err error

	switch codec {
	case CodecZstd:
		out, err = compressZstd(data, level)
	case CodecXZ:
		out, err = compressXZ(data, level)
	case CodecNone:
		out = append([]byte(nil), data...)
	default:
		return nil, Info{}, fmt.Errorf("%w: %q", ccerrors.ErrUnsupportedCodec, codec)
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("compress %s: %w", codec, err)
	}

	info := Info{
		Codec:          codec,
		Level:          level,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(out)),
	}
	if len(data) > 0 {
		info.Ratio = float64(len(out)) / float64(len(data))
	} else {
		info.Ratio = 1.0
	}
	calog.Debugf("compressor", "%s level=%d %d -> %d bytes (ratio %.3f)", codec, level, len(data), len(out), info.Ratio)
	return out, info, nil
}

// Decompress reverses Compress using the recorded descriptor. It fails with
// ErrUnsupportedCodec if info.Codec names a codec this build doesn't know,
// per §4.2.
func Decompress(data []byte, info Info) ([]byte, error) {
	switch info.Codec {
	case CodecZstd:
		return decompressZstd(data)
	case CodecXZ:
		return decompressXZ(data)
	case CodecNone:
		return append([]byte(nil), data...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ccerrors.ErrUnsupportedCodec, info.Codec)
	}
}

func compressZstd(data []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// zstdLevel maps the profile's "level 6"/"level 9" style integer onto
// klauspost/compress's named speed/level presets.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 9:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func compressXZ(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	cfg := xz.WriterConfig{}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressXZ(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
