// Package packer implements C1: deterministic serialization of a directory
// tree to a single framed byte blob, and its inverse.
//
// Blob layout (§3, §6):
//
//	"CRYSTAL\x00" ‖ record* 		where record =
//	"FILE\x00" ‖ utf8_path ‖ 0x00 ‖ size_be_u64 ‖ bytes[size]
package packer

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/calog"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Magic prefixes a well-formed blob.
var Magic = []byte("CRYSTAL\x00")

// fileMarker prefixes each file record within the blob.
var fileMarker = []byte("FILE\x00")

// Entry describes one packed file: its normalized relative path, size, and
// content hash — the archive identity unit of §3.
type Entry struct {
	Path   string
	Size   uint64
	SHA256 [32]byte
}

// Pack walks root in sorted order and returns the framed blob plus the
// ordered entry list. Order is part of the archive identity (§3): entries
// are sorted lexicographically by path before framing.
func Pack(root string) ([]byte, []Entry, error) {
	type found struct {
		relPath string
		absPath string
	}
	var files []found

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walking %s: %v", ccerrors.ErrIOFailure, path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("%w: relativizing %s: %v", ccerrors.ErrIOFailure, path, err)
		}
		files = append(files, found{relPath: filepath.ToSlash(rel), absPath: path})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].relPath < files[j].relPath })

	var buf bytes.Buffer
	buf.Write(Magic)
	entries := make([]Entry, 0, len(files))

	for _, f := range files {
		data, err := os.ReadFile(f.absPath)
		if err != nil {
			// Files unreadable for I/O reasons fail the encode (no silent skip), per §4.1.
			return nil, nil, fmt.Errorf("%w: reading %s: %v", ccerrors.ErrIOFailure, f.relPath, err)
		}
		sum := sha256.Sum256(data)

		buf.Write(fileMarker)
		buf.WriteString(f.relPath)
		buf.WriteByte(0)
		var sizeBuf [8]byte
		binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(data)))
		buf.Write(sizeBuf[:])
		buf.Write(data)

		entries = append(entries, Entry{Path: f.relPath, Size: uint64(len(data)), SHA256: sum})
	}

	calog.Debugf("packer", "packed %d files, %d bytes", len(entries), buf.Len())
	return buf.Bytes(), entries, nil
}

// Unpack validates the magic, reads records until the blob ends, rejects
// truncated records, and writes files to outDir creating parent directories
// as needed. Returns the entries actually written, in blob order.
func Unpack(blob []byte, outDir string) ([]Entry, error) {
	if !bytes.HasPrefix(blob, Magic) {
		return nil, fmt.Errorf("%w: bad magic", ccerrors.ErrMalformedBlob)
	}
	pos := len(Magic)
	var entries []Entry

	for pos < len(blob) {
		if pos+len(fileMarker) > len(blob) || !bytes.Equal(blob[pos:pos+len(fileMarker)], fileMarker) {
			return nil, fmt.Errorf("%w: expected FILE marker at offset %d", ccerrors.ErrMalformedBlob, pos)
		}
		pos += len(fileMarker)

		nameEnd := bytes.IndexByte(blob[pos:], 0)
		if nameEnd < 0 {
			return nil, fmt.Errorf("%w: unterminated path at offset %d", ccerrors.ErrMalformedBlob, pos)
		}
		relPath := string(blob[pos : pos+nameEnd])
		pos += nameEnd + 1

		if pos+8 > len(blob) {
			return nil, fmt.Errorf("%w: truncated size field for %s", ccerrors.ErrMalformedBlob, relPath)
		}
		size := binary.BigEndian.Uint64(blob[pos : pos+8])
		pos += 8

		if uint64(pos)+size > uint64(len(blob)) {
			return nil, fmt.Errorf("%w: truncated data for %s", ccerrors.ErrMalformedBlob, relPath)
		}
		data := blob[pos : pos+size]
		pos += int(size)

		destPath := filepath.Join(outDir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir for %s: %v", ccerrors.ErrIOFailure, relPath, err)
		}
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", ccerrors.ErrIOFailure, relPath, err)
		}

		entries = append(entries, Entry{Path: relPath, Size: size, SHA256: sha256.Sum256(data)})
	}

	calog.Debugf("packer", "unpacked %d files to %s", len(entries), outDir)
	return entries, nil
}
