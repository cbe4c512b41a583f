// Package manifest implements C9: the self-describing record that lets a
// fresh decoder reconstruct every parameter used at encode time, plus its
// tamper-evident self-hash and optional Ed25519 signature.
package manifest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Version is the manifest schema version written into every manifest.
const Version = "1.0.0"

// FileEntry records one packed file's identity (§6).
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// LDPCParams are the inner-code parameters a decoder needs to regenerate
// H deterministically (§4.5, §4.9).
type LDPCParams struct {
	N      int     `json:"n"`
	K      int     `json:"k"`
	Rate   float64 `json:"rate"`
	SeedH  uint64  `json:"seed_h"`
	MaxIter int    `json:"max_iter"`
}

// RSParams are the outer-code parameters (§4.4, §4.9).
type RSParams struct {
	N         int    `json:"n"`
	K         int    `json:"k"`
	ShardSize int    `json:"shard_size"`
	Scheme    string `json:"scheme"`
}

// CompressionInfo records the codec and its descriptor (§4.2, §4.9).
type CompressionInfo struct {
	Codec string      `json:"codec"`
	Info  interface{} `json:"info"`
}

// VoxelParams records the voxel mode and tables (§4.7, §4.9).
type VoxelParams struct {
	Mode             string    `json:"mode"`
	BitsPerVoxel     int       `json:"bits_per_voxel"`
	Orientations     int       `json:"orientations"`
	RetardanceLevels int       `json:"retardance_levels"`
	Angles           []float64 `json:"angles"`
	RetardanceΛ      []float64 `json:"retardance_levels_lambda"`
}

// InterleavingParams records the PRNG family, seed, and span (§4.6, §4.9).
type InterleavingParams struct {
	PRNG  string `json:"prng"`
	Seed  uint64 `json:"seed"`
	Span  int    `json:"span"`
	Depth int    `json:"depth"`
}

// Encoding bundles every codec-level parameter set.
type Encoding struct {
	ProfileParams interface{}        `json:"profile_params"`
	Compression   CompressionInfo    `json:"compression"`
	ECC           ECC                `json:"ecc"`
	Voxel         VoxelParams        `json:"voxel"`
	Interleaving  InterleavingParams `json:"interleaving"`
}

// ECC bundles the inner and outer code parameters.
type ECC struct {
	LDPC        LDPCParams `json:"ldpc"`
	ReedSolomon RSParams   `json:"reed_solomon"`
}

// Geometry records the tile/plane shape (§4.8, §4.9).
type Geometry struct {
	TilesX       int `json:"tiles_x"`
	TilesY       int `json:"tiles_y"`
	Planes       int `json:"planes"`
	TotalTiles   int `json:"total_tiles"`
	TotalSymbols int `json:"total_symbols"`
}

// Signature is an optional Ed25519 signature over the manifest hash.
type Signature struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// Integrity holds the tamper-evidence block, excluded from its own hash
// computation (§4.9, §6).
type Integrity struct {
	MerkleRoot   string     `json:"merkle_root"`
	ManifestHash string     `json:"manifest_hash,omitempty"`
	Signature    *Signature `json:"signature,omitempty"`
}

// Manifest is the full self-describing record (§6).
type Manifest struct {
	Version      string      `json:"version"`
	Created      string      `json:"created"`
	Profile      string      `json:"profile"`
	Encoding     Encoding    `json:"encoding"`
	Geometry     Geometry    `json:"geometry"`
	Files        []FileEntry `json:"files"`
	Integrity    Integrity   `json:"integrity"`
	Instructions string      `json:"instructions"`

	// VoxelPad and LDPCPad are the zero-padding lengths recorded at
	// encode time so a fresh decoder can trim the tail bits added by
	// voxel bit-grouping (§4.7) and by the final LDPC block of every
	// shard (§4.5) without having to infer them.
	VoxelPad int `json:"voxel_pad"`
	LDPCPad  int `json:"ldpc_pad"`
}

// New builds an empty manifest stamped with the given creation time
// (RFC3339 / ISO-8601 UTC) and default human-readable instructions.
func New(created string, profile string) *Manifest {
	return &Manifest{
		Version:      Version,
		Created:      created,
		Profile:      profile,
		Instructions: DefaultInstructions,
	}
}

// DefaultInstructions is the trailing free-form playbook every manifest
// carries, for a human (or a decoder with no other context) reconstructing
// the archive from raw crystal readings.
const DefaultInstructions = `Crystal Archive Decoding Instructions
======================================

1. Optical Calibration
   - Use primer targets for focus lock.
   - Calibrate polarization angle to 0 degrees.
   - Set gain using reference pages.

2. Symbol Decoding
   - Read voxel orientation (angle) and retardance.
   - Use the Gray-coded tables recorded in this manifest's voxel block.
   - Apply soft-decision thresholds when reliability data is available.

3. Error Correction
   - Deinterleave using the PRNG family and seed recorded in this manifest.
   - Apply LDPC soft-decision decoding per shard, falling back to hard
     decisions when no reliability is available.
   - Apply Reed-Solomon erasure recovery at the shard level.

4. Data Recovery
   - Verify the Merkle root against surviving shards.
   - Decompress using the codec recorded in this manifest.
   - Verify each file's SHA-256 hash; a mismatch is reported but does not
     block recovery of the remaining files.
`

// canonicalBytes returns data marshaled with alphabetically sorted object
// keys, matching json.dumps(..., sort_keys=True): Go's encoding/json
// already sorts map[string]interface{} keys, so round-tripping a struct
// through that representation yields a canonical form.
func canonicalBytes(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ComputeHash returns the hex SHA-256 of m's canonical serialization with
// the integrity block removed (§4.9).
func (m *Manifest) ComputeHash() (string, error) {
	copy := *m
	copy.Integrity = Integrity{}
	raw, err := canonicalBytes(copy)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Sign signs m's recorded ManifestHash with priv, populating
// Integrity.Signature. It does not compute the hash itself: call it after
// ManifestHash has been written.
func (m *Manifest) Sign(priv ed25519.PrivateKey) error {
	if m.Integrity.ManifestHash == "" {
		return fmt.Errorf("%w: sign called before manifest hash was computed", ccerrors.ErrManifestTampered)
	}
	sig := ed25519.Sign(priv, []byte(m.Integrity.ManifestHash))
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("ed25519: unexpected public key type")
	}
	m.Integrity.Signature = &Signature{
		Algorithm: "Ed25519",
		PublicKey: hex.EncodeToString(pub),
		Signature: hex.EncodeToString(sig),
	}
	return nil
}

// VerifySignature checks m.Integrity.Signature against the manifest hash
// it carries. Returns false if there is no signature to check.
func (m *Manifest) VerifySignature() (bool, error) {
	sig := m.Integrity.Signature
	if sig == nil {
		return false, nil
	}
	pub, err := hex.DecodeString(sig.PublicKey)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(m.Integrity.ManifestHash), sigBytes), nil
}

// Save finalizes the self-hash and returns the manifest as pretty-printed
// JSON in struct field order (matching the teacher-adjacent human-archival
// convention of shipping inspectable config/state as formatted JSON). The
// sort-keyed canonical form is used only for computing the hash.
func (m *Manifest) Save() ([]byte, error) {
	hash, err := m.ComputeHash()
	if err != nil {
		return nil, err
	}
	m.Integrity.ManifestHash = hash

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load parses raw manifest JSON and rejects it with ErrManifestTampered if
// the recorded manifest_hash does not match a fresh computation (§4.9).
func Load(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ccerrors.ErrMalformedBlob, err)
	}

	stored := m.Integrity.ManifestHash
	if stored == "" {
		return &m, nil
	}
	computed, err := m.ComputeHash()
	if err != nil {
		return nil, err
	}
	if stored != computed {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ccerrors.ErrManifestTampered, stored, computed)
	}
	return &m, nil
}
