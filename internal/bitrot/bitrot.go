// Package bitrot verifies shard blocks against their stored checksum
// using HighwayHash-256, the algorithm MinIO's on-disk format uses for
// per-block silent-corruption detection.
package bitrot

import (
	"crypto/subtle"
	"fmt"

	"github.com/minio/highwayhash"
)

// Size is the digest length in bytes.
const Size = 32

// Key is the fixed, all-zero 32-byte HighwayHash key MinIO uses for
// bitrot checksums. Go has no array constants, so it is a package-level
// variable; the package only reads it.
var Key [Size]byte

// Digest computes the HighwayHash-256 of data.
func Digest(data []byte) [Size]byte {
	h, err := highwayhash.New(Key[:])
	if err != nil {
		// Key is a fixed 32-byte constant; New only fails on key length.
		panic(fmt.Sprintf("bitrot: unexpected highwayhash.New error: %v", err))
	}
	h.Write(data)
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether data hashes to expected, in constant time.
func Verify(expected [Size]byte, data []byte) bool {
	got := Digest(data)
	return subtle.ConstantTimeCompare(expected[:], got[:]) == 1
}
