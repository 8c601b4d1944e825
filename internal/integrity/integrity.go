// Package integrity provides the hashing primitives shared by the cache,
// lockfile writer, and autoloader generator: BLAKE3 content addressing and
// SHA-1 Composer-compatible checksums, plus constant-time comparison for
// anything that originated outside the process (dist archive shasums).
package integrity

import (
	"crypto/sha1" //nolint:gosec // required for Composer dist.shasum compatibility, not a security boundary
	"crypto/subtle"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashSize is the length in bytes of a ContentHash.
const HashSize = 32

// ContentHash is a BLAKE3 digest used to address cache blobs and to detect
// lock-file drift.
type ContentHash [HashSize]byte

// Hash computes the BLAKE3 content hash of b.
func Hash(b []byte) ContentHash {
	var h ContentHash
	sum := blake3.Sum256(b)
	copy(h[:], sum[:])
	return h
}

// String renders the hash as lowercase hex, the form used for cache
// addressing on disk.
func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// ParseContentHash decodes a lowercase-hex content hash, as emitted by
// String.
func ParseContentHash(s string) (ContentHash, bool) {
	var h ContentHash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != HashSize {
		return ContentHash{}, false
	}
	copy(h[:], b)
	return h, true
}

// SHA1Hex computes the lowercase-hex SHA-1 digest of b, matching the
// `dist.shasum` field Composer emits and verifies against downloaded
// archives.
func SHA1Hex(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqualHex reports whether two lowercase-hex digests are equal,
// comparing in constant time so that checksum verification doesn't leak
// timing information about how much of an attacker-supplied digest matched.
func ConstantTimeEqualHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
