// Package xlrecover reconstructs objects from the on-disk files of a
// MinIO erasure-coded deployment: the meta-sidecar, the cluster
// topology-doc, and the erasure-coded shard files themselves. It is a
// read-only library for data recovery, forensics, and migration tooling
// when the MinIO service itself is unavailable and only the filesystem
// contents remain.
//
// A typical decode:
//
//	meta, err := xlrecover.ParseSidecar(sidecarBytes, "my-bucket", "my-key")
//	src := xlrecover.NewFileSystemSource([]string{"/mnt/disk1", "/mnt/disk2", "/mnt/disk3"})
//	data, err := xlrecover.DecodeObject(meta, src, xlrecover.DecodeOptions{})
package xlrecover

import (
	"io"

	"github.com/google/uuid"

	"github.com/dialohq/xlrecover/internal/decode"
	"github.com/dialohq/xlrecover/internal/shard"
	"github.com/dialohq/xlrecover/internal/sidecar"
	"github.com/dialohq/xlrecover/internal/source"
	"github.com/dialohq/xlrecover/internal/topology"
)

// ObjectMeta is the normalized projection of a selected sidecar version.
type ObjectMeta = sidecar.ObjectMeta

// Part describes one segment of a multipart object.
type Part = sidecar.Part

// VersionKind identifies which alternative of a sidecar version record
// was decoded: a regular object, a delete marker, or an unsupported
// legacy record.
type VersionKind = sidecar.VersionKind

const (
	VersionObject       = sidecar.VersionObject
	VersionDeleteMarker = sidecar.VersionDeleteMarker
	VersionLegacy       = sidecar.VersionLegacy
)

// TopologyDoc is a parsed topology-doc: a pool's identity, the disk a
// given copy describes, and the ordered matrix of erasure sets.
type TopologyDoc = topology.Doc

// Source fetches the raw bytes of a shard file for one disk slot. It is
// the library's only polymorphic seam; implement it to back decode with
// anything other than a local filesystem.
type Source = source.Source

// FileSystemSource is the stock Source backed by an ordered list of disk
// root directories.
type FileSystemSource = source.FileSystem

// DecodeOptions controls DecodeObject and DecodeObjectTo.
type DecodeOptions = decode.Options

// Sentinel errors re-exported for callers that want to match with
// errors.Is/errors.As without importing the internal packages directly.
var (
	ErrUnsupportedSidecarVersion  = sidecar.ErrUnsupportedSidecarVersion
	ErrCorruptSidecar             = sidecar.ErrCorruptSidecar
	ErrLegacyOnly                 = sidecar.ErrLegacyOnly
	ErrInlineDataUnsupported      = sidecar.ErrInlineDataUnsupported
	ErrUnsupportedEcAlgo          = sidecar.ErrUnsupportedEcAlgo
	ErrUnsupportedChecksum        = sidecar.ErrUnsupportedChecksum
	ErrUnsupportedTopologyVersion = topology.ErrUnsupportedVersion
	ErrDiskNotFound               = topology.ErrDiskNotFound
	ErrLegacyUnsupported          = decode.ErrLegacyUnsupported
	ErrSizeOverflow               = decode.ErrSizeOverflow
)

// BitrotError reports that a verified block's stored checksum did not
// match its bytes.
type BitrotError = shard.BitrotError

// InsufficientShardsError reports the part and block at which
// reconstruction failed for lack of present data shards.
type InsufficientShardsError = decode.InsufficientShardsError

// ShardSourceFailureError wraps a failure reported by a Source, as
// opposed to a normal absent result.
type ShardSourceFailureError = decode.ShardSourceFailureError

// InvalidDistributionError means an ObjectMeta's Distribution is not a
// permutation of 1..D+P.
type InvalidDistributionError = decode.InvalidDistributionError

// MissingFieldError means a required field was absent from a sidecar's
// selected version submap.
type MissingFieldError = sidecar.MissingFieldError

// InvalidErasureLayoutError means a sidecar's EcIndex or EcDist violated
// the distribution-permutation or erasure-index invariants.
type InvalidErasureLayoutError = sidecar.InvalidErasureLayoutError

// LengthMismatchError means a shard file's on-disk length fell outside
// the range implied by its part's block count and shard-block size.
type LengthMismatchError = shard.LengthMismatchError

// ParseSidecar decodes sidecar bytes into the first non-Legacy version,
// filling in the caller-supplied bucket/key identity.
func ParseSidecar(data []byte, bucket, key string) (*ObjectMeta, error) {
	return sidecar.Parse(data, bucket, key)
}

// ParseSidecarAllVersions decodes every non-Legacy version record in the
// sidecar's Versions array, in stored order.
func ParseSidecarAllVersions(data []byte, bucket, key string) ([]*ObjectMeta, error) {
	return sidecar.ParseAllVersions(data, bucket, key)
}

// ParseTopology decodes a topology-doc's JSON bytes.
func ParseTopology(data []byte) (*TopologyDoc, error) {
	return topology.Parse(data)
}

// DiskIndex locates disk's position within doc's sets matrix.
func DiskIndex(doc *TopologyDoc, disk uuid.UUID) (poolIdx, setIdx, diskIdx int, err error) {
	return topology.DiskIndex(doc, disk)
}

// ReadShardBlock returns a single verified block from shard bytes by
// direct offset, without needing the rest of the decode pipeline.
func ReadShardBlock(shardBytes []byte, blockIndex, shardBlockSize int, verify bool) ([]byte, error) {
	return shard.ReadBlockAt(shardBytes, blockIndex, shardBlockSize, -1, verify)
}

// NewFileSystemSource builds a Source over an ordered list of disk root
// directories, matching the layout one disk-index slot per root.
func NewFileSystemSource(roots []string) *FileSystemSource {
	return source.NewFileSystem(roots)
}

// DecodeObject reconstructs meta's full byte stream by reading shards
// through src, returning a single buffer.
func DecodeObject(meta *ObjectMeta, src Source, opts DecodeOptions) ([]byte, error) {
	return decode.Object(meta, src, opts)
}

// DecodeObjectTo streams meta's reconstructed byte stream to w, one
// block at a time, so the output is never buffered whole. Each part's
// shard files are still read into memory in full before its blocks are
// decoded.
func DecodeObjectTo(w io.Writer, meta *ObjectMeta, src Source, opts DecodeOptions) error {
	return decode.ObjectTo(w, meta, src, opts)
}
