package main

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/prng"
)

// signingKeySalt separates the Ed25519 key stream from the LDPC matrix and
// interleaver streams derived from the same archive seed (§9 "global state:
// none required" — a signing key is just another deterministic function of
// the seed, not a secret the archive needs to persist separately).
const signingKeySalt = 0xA24BAED4963EE407

// deriveSigningKey derives an Ed25519 key pair deterministically from seed,
// so re-running encode with --sign and the same seed reproduces an
// identical signature rather than a fresh, unrecoverable key each time.
func deriveSigningKey(seed uint64) (ed25519.PublicKey, ed25519.PrivateKey) {
	src := prng.New(seed ^ signingKeySalt)
	var material [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(material[i*8:i*8+8], src.Uint64())
	}
	priv := ed25519.NewKeyFromSeed(material[:])
	return priv.Public().(ed25519.PublicKey), priv
}
