// Package digest computes the SHA3-512 digests used for fingerprints and seals.
package digest

import (
	"encoding/hex"
	"os"

	"golang.org/x/crypto/sha3"

	"xdao.co/bloom/bloomerr"
)

// Algorithm is the only supported fingerprint algorithm tag.
// Fingerprint comparisons are gated on this tag before any hash is compared.
const Algorithm = "sha3-512"

// HexLen is the length of a lowercase hex SHA3-512 digest.
const HexLen = 128

// Sum returns the raw SHA3-512 digest of data.
func Sum(data []byte) [64]byte {
	return sha3.Sum512(data)
}

// Bytes returns the lowercase hex SHA3-512 digest of data.
// It is defined for all inputs, including empty ones.
func Bytes(data []byte) string {
	s := sha3.Sum512(data)
	return hex.EncodeToString(s[:])
}

// File reads the whole file at path and returns Bytes(content).
//
// Missing or unreadable paths and non-regular files fail with KindIO. Nothing is
// hashed unless the full content was read.
func File(path string) (string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return Bytes(data), nil
}

// ReadFile returns the content of the regular file at path with the same
// failure rules as File, for callers that need the bytes as well as the digest.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindIO, "BLOOM-IO-001", "stat "+path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, bloomerr.New(bloomerr.KindIO, "BLOOM-IO-002", path+" is not a regular file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindIO, "BLOOM-IO-003", "read "+path, err)
	}
	return data, nil
}

// ValidHex reports whether s looks like a digest produced by Bytes:
// exactly HexLen lowercase hex characters.
func ValidHex(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
