package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
)

// addressSeparator delimits the provenance fields inside the digest input.
// NUL cannot appear in valid slugs, kinds, or anchors.
const addressSeparator = 0x00

// ChunkID computes the content address of a segment from its source
// coordinates and composed text. The result is a fixed-width lowercase hex
// SHA-256 digest; identical inputs always reproduce the same ID, and any
// change to slug, kind, anchor, or text changes it.
func ChunkID(slug, kind, anchor, composed string) string {
	h := sha256.New()
	h.Write([]byte(slug))
	h.Write([]byte{addressSeparator})
	h.Write([]byte(kind))
	h.Write([]byte{addressSeparator})
	h.Write([]byte(anchor))
	h.Write([]byte{addressSeparator})
	h.Write([]byte(composed))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkIDLen is the length of a hex-encoded chunk ID.
const ChunkIDLen = sha256.Size * 2
