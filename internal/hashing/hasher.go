// Package hashing provides the content digests used as cache identities:
// sha256 over raw bytes for file dedup and over normalized text for
// composite cache keys. Collisions are treated as identity.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// ShortHashLen is the truncation used for non-dedup identifiers such as
// prompt-version tags.
const ShortHashLen = 12

// HashBytes returns the hex sha256 digest of raw content bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through sha256 and returns the hex digest.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashText normalizes s (trimmed, whitespace runs collapsed to a single
// space) before hashing, so cosmetic edits to pasted text do not produce a
// new identity.
func HashText(s string) string {
	return HashBytes([]byte(NormalizeText(s)))
}

// NormalizeText is the canonical form HashText digests.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ShortHash truncates a full hex digest for display or tag use. Not suitable
// for dedup keys.
func ShortHash(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}
