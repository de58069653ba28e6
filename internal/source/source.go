// Package source defines the shard-source contract that the decode
// pipeline reads raw shard bytes through, and ships one stock
// implementation over the local filesystem. It is the library's only
// polymorphic seam (see SPEC_FULL.md) — a single-operation capability
// rather than an inheritance hierarchy.
package source

// Source fetches the raw bytes of a shard file for one disk slot. A
// missing shard is reported via (nil, false, nil), not an error: the
// decode pipeline treats absence as a normal, recoverable event and
// drives Reed-Solomon reconstruction from it. Any other failure to read
// is reported via a non-nil error and is surfaced to the caller wrapped,
// so errors.Is and errors.As still reach the original error.
type Source interface {
	ReadShard(diskIndex int, bucket, key, dataDir string, partNum int) (data []byte, present bool, err error)
}
