// Package sidecar parses the per-object meta-sidecar: a fixed binary
// frame wrapping a self-describing value-tree payload, terminated by a
// CRC32C trailer. This is the hardest-to-get-right piece of the format
// (see spec.md §1) — it gates the whole decode pipeline on an exact
// version check and projects a dynamically-typed payload into a fully
// typed ObjectMeta.
package sidecar

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/dialohq/xlrecover/internal/valuetree"
)

// Magic is the fixed 4-byte prefix of every meta-sidecar.
var Magic = [4]byte{'X', 'L', '2', ' '}

const (
	minMajor = 1
	minMinor = 3
)

// Errors returned by Parse and ParseAllVersions. Each names one variant
// of spec.md §7's Parse error taxonomy.
var (
	ErrUnsupportedSidecarVersion = errors.New("sidecar: unsupported format version")
	ErrCorruptSidecar            = errors.New("sidecar: crc32c trailer mismatch")
	ErrLegacyOnly                = errors.New("sidecar: only legacy versions present")
	ErrInlineDataUnsupported     = errors.New("sidecar: inline-data object not supported")
	ErrUnsupportedEcAlgo         = errors.New("sidecar: unsupported erasure algorithm")
	ErrUnsupportedChecksum       = errors.New("sidecar: unsupported checksum algorithm")
)

// MissingFieldError means a required field was absent from the selected
// version's submap.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("sidecar: missing required field %q", e.Field)
}

// InvalidErasureLayoutError means the sidecar's EcIndex or EcDist fields
// violated spec.md §3's invariants: erasure_index in [1, D+P], and
// distribution a permutation (no duplicates, every value in range) of
// length D+P.
type InvalidErasureLayoutError struct {
	Reason string
}

func (e *InvalidErasureLayoutError) Error() string {
	return fmt.Sprintf("sidecar: invalid erasure layout: %s", e.Reason)
}

// VersionKind identifies which alternative of a sidecar version record
// was decoded.
type VersionKind int

const (
	VersionObject VersionKind = iota
	VersionDeleteMarker
	VersionLegacy
)

func (k VersionKind) String() string {
	switch k {
	case VersionObject:
		return "Object"
	case VersionDeleteMarker:
		return "DeleteMarker"
	case VersionLegacy:
		return "Legacy"
	default:
		return "Unknown"
	}
}

// Part describes one segment of a multipart object.
type Part struct {
	Number     int
	Size       int64
	ActualSize int64
	ETag       string
}

// ObjectMeta is the normalized projection of a selected sidecar version,
// per spec.md §3.
type ObjectMeta struct {
	Bucket, Key string

	Kind      VersionKind
	VersionID [16]byte
	DataDir   [16]byte

	EcAlgo       string
	DataShards   int
	ParityShards int
	BlockSize    int64
	ChecksumAlgo string
	ErasureIndex int
	Distribution []int

	Parts []Part
	Size  int64

	ModTime int64
	ETag    string

	ContentType string
	UserMeta    map[string]string
	SystemMeta  map[string]string
}

// DataDirString renders DataDir as a canonical dashed UUID string, the
// form the shard-source contract (§6) expects as its data_dir argument.
func (m *ObjectMeta) DataDirString() string {
	id, _ := uuid.FromBytes(m.DataDir[:])
	return id.String()
}

const (
	ecAlgoReedSolomon      = 1
	csumAlgoHighwayHash256 = 1
)

// framing splits a sidecar buffer into its header fields and payload,
// validating magic, version, and the CRC32C trailer.
func framing(data []byte) (payload []byte, err error) {
	const headerLen = 4 + 1 + 1
	const trailerLen = 4
	if len(data) < headerLen+trailerLen {
		return nil, fmt.Errorf("%w: buffer too short for framing", ErrUnsupportedSidecarVersion)
	}
	if [4]byte(data[0:4]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrUnsupportedSidecarVersion)
	}
	major, minor := data[4], data[5]
	if major != minMajor || minor < minMinor {
		return nil, fmt.Errorf("%w: got %d.%d, need >= %d.%d", ErrUnsupportedSidecarVersion, major, minor, minMajor, minMinor)
	}

	body := data[headerLen : len(data)-trailerLen]
	trailer := data[len(data)-trailerLen:]
	declared := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24

	table := crc32.MakeTable(crc32.Castagnoli)
	computed := crc32.Checksum(body, table)
	if computed != declared {
		return nil, ErrCorruptSidecar
	}
	return body, nil
}

// Parse decodes sidecar bytes into the first non-Legacy version, filling
// in the caller-supplied bucket/key identity that is not itself present
// inside the sidecar.
func Parse(data []byte, bucket, key string) (*ObjectMeta, error) {
	payload, err := framing(data)
	if err != nil {
		return nil, err
	}

	root, n, err := valuetree.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("sidecar: decode payload: %w", err)
	}
	if n != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes after payload", ErrCorruptSidecar, len(payload)-n)
	}

	versionsVal, ok := root.MapGet("Versions")
	if !ok || versionsVal.Kind != valuetree.KindArray {
		return nil, &MissingFieldError{Field: "Versions"}
	}

	sawLegacy := false
	for _, v := range versionsVal.Array {
		kind, sub, err := classifyVersion(v)
		if err != nil {
			return nil, err
		}
		if kind == VersionLegacy {
			sawLegacy = true
			continue
		}
		return projectVersion(kind, sub, bucket, key)
	}
	if sawLegacy || len(versionsVal.Array) == 0 {
		return nil, ErrLegacyOnly
	}
	return nil, &MissingFieldError{Field: "Versions"}
}

// ParseAllVersions decodes every non-Legacy version record in the
// sidecar's Versions array, in stored order, without picking a "current"
// one; Legacy records are skipped.
// This supplements spec.md's Parse for forensic tools that want the
// whole version history rather than just the live version.
func ParseAllVersions(data []byte, bucket, key string) ([]*ObjectMeta, error) {
	payload, err := framing(data)
	if err != nil {
		return nil, err
	}
	root, n, err := valuetree.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("sidecar: decode payload: %w", err)
	}
	if n != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes after payload", ErrCorruptSidecar, len(payload)-n)
	}

	versionsVal, ok := root.MapGet("Versions")
	if !ok || versionsVal.Kind != valuetree.KindArray {
		return nil, &MissingFieldError{Field: "Versions"}
	}

	out := make([]*ObjectMeta, 0, len(versionsVal.Array))
	for _, v := range versionsVal.Array {
		kind, sub, err := classifyVersion(v)
		if err != nil {
			return nil, err
		}
		if kind == VersionLegacy {
			continue
		}
		meta, err := projectVersion(kind, sub, bucket, key)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}

func classifyVersion(v valuetree.Value) (VersionKind, valuetree.Value, error) {
	typeVal, ok := v.MapGet("Type")
	if !ok {
		return 0, valuetree.Value{}, &MissingFieldError{Field: "Type"}
	}
	typeStr, ok := typeVal.AsString()
	if !ok {
		return 0, valuetree.Value{}, &MissingFieldError{Field: "Type"}
	}

	switch typeStr {
	case "Object":
		sub, ok := v.MapGet("V2Obj")
		if !ok {
			return 0, valuetree.Value{}, &MissingFieldError{Field: "V2Obj"}
		}
		return VersionObject, sub, nil
	case "DeleteMarker":
		sub, ok := v.MapGet("DeleteMarker")
		if !ok {
			return 0, valuetree.Value{}, &MissingFieldError{Field: "DeleteMarker"}
		}
		return VersionDeleteMarker, sub, nil
	case "Legacy":
		return VersionLegacy, valuetree.Value{}, nil
	default:
		return 0, valuetree.Value{}, fmt.Errorf("sidecar: unrecognized version Type %q", typeStr)
	}
}

func projectVersion(kind VersionKind, sub valuetree.Value, bucket, key string) (*ObjectMeta, error) {
	meta := &ObjectMeta{
		Bucket: bucket,
		Key:    key,
		Kind:   kind,
	}

	id, err := requiredBytes16(sub, "ID")
	if err != nil {
		return nil, err
	}
	meta.VersionID = id

	mtime, err := requiredInt64(sub, "MTime")
	if err != nil {
		return nil, err
	}
	meta.ModTime = mtime

	if kind == VersionDeleteMarker {
		return meta, nil
	}

	if dataVal, ok := sub.MapGet("Data"); ok {
		if b, ok := dataVal.AsBytes(); ok && len(b) > 0 {
			return nil, fmt.Errorf("%w: object version carries a non-empty Data field", ErrInlineDataUnsupported)
		}
	}

	dataDir, err := requiredBytes16(sub, "DDir")
	if err != nil {
		return nil, err
	}
	meta.DataDir = dataDir

	ecAlgo, err := requiredUint(sub, "EcAlgo")
	if err != nil {
		return nil, err
	}
	if ecAlgo != ecAlgoReedSolomon {
		return nil, fmt.Errorf("%w: algo %d", ErrUnsupportedEcAlgo, ecAlgo)
	}
	meta.EcAlgo = "ReedSolomon"

	dataShards, err := requiredUint(sub, "EcM")
	if err != nil {
		return nil, err
	}
	meta.DataShards = int(dataShards)

	parityShards, err := requiredUint(sub, "EcN")
	if err != nil {
		return nil, err
	}
	meta.ParityShards = int(parityShards)

	blockSize, err := requiredUint(sub, "EcBSize")
	if err != nil {
		return nil, err
	}
	meta.BlockSize = int64(blockSize)

	shardTotal := meta.DataShards + meta.ParityShards

	erasureIndex, err := requiredUint(sub, "EcIndex")
	if err != nil {
		return nil, err
	}
	meta.ErasureIndex = int(erasureIndex)
	if meta.ErasureIndex < 1 || meta.ErasureIndex > shardTotal {
		return nil, &InvalidErasureLayoutError{
			Reason: fmt.Sprintf("erasure_index %d out of range [1,%d]", meta.ErasureIndex, shardTotal),
		}
	}

	distVal, ok := sub.MapGet("EcDist")
	if !ok || distVal.Kind != valuetree.KindArray {
		return nil, &MissingFieldError{Field: "EcDist"}
	}
	if len(distVal.Array) != shardTotal {
		return nil, &InvalidErasureLayoutError{
			Reason: fmt.Sprintf("distribution length %d does not match D+P %d", len(distVal.Array), shardTotal),
		}
	}
	dist := make([]int, len(distVal.Array))
	seen := make([]bool, shardTotal+1)
	for i, v := range distVal.Array {
		n, ok := v.AsUint64()
		if !ok {
			return nil, fmt.Errorf("sidecar: EcDist[%d] is not an integer", i)
		}
		slot := int(n)
		if slot < 1 || slot > shardTotal {
			return nil, &InvalidErasureLayoutError{
				Reason: fmt.Sprintf("EcDist[%d]=%d out of range [1,%d]", i, slot, shardTotal),
			}
		}
		if seen[slot] {
			return nil, &InvalidErasureLayoutError{
				Reason: fmt.Sprintf("EcDist[%d]=%d duplicates an earlier entry", i, slot),
			}
		}
		seen[slot] = true
		dist[i] = slot
	}
	meta.Distribution = dist

	csumAlgo, err := requiredUint(sub, "CSumAlgo")
	if err != nil {
		return nil, err
	}
	if csumAlgo != csumAlgoHighwayHash256 {
		return nil, fmt.Errorf("%w: algo %d", ErrUnsupportedChecksum, csumAlgo)
	}
	meta.ChecksumAlgo = "HighwayHash256"

	parts, err := projectParts(sub)
	if err != nil {
		return nil, err
	}
	meta.Parts = parts
	var total int64
	for _, p := range parts {
		total += p.Size
	}
	meta.Size = total

	sysMeta, err := projectStringMap(sub, "MetaSys")
	if err != nil {
		return nil, err
	}
	usrMeta, err := projectStringMap(sub, "MetaUsr")
	if err != nil {
		return nil, err
	}
	meta.SystemMeta = sysMeta
	meta.UserMeta = usrMeta

	meta.ETag = sysMeta["etag"]
	if ct, ok := usrMeta["content-type"]; ok {
		meta.ContentType = ct
	} else {
		meta.ContentType = "application/octet-stream"
	}

	return meta, nil
}

func projectParts(sub valuetree.Value) ([]Part, error) {
	numsVal, ok := sub.MapGet("PartNums")
	if !ok || numsVal.Kind != valuetree.KindArray {
		return nil, &MissingFieldError{Field: "PartNums"}
	}
	sizesVal, ok := sub.MapGet("PartSizes")
	if !ok || sizesVal.Kind != valuetree.KindArray {
		return nil, &MissingFieldError{Field: "PartSizes"}
	}
	if len(numsVal.Array) != len(sizesVal.Array) {
		return nil, fmt.Errorf("sidecar: PartNums/PartSizes length mismatch (%d vs %d)", len(numsVal.Array), len(sizesVal.Array))
	}

	var aSizes, eTags []valuetree.Value
	if v, ok := sub.MapGet("PartASizes"); ok && v.Kind == valuetree.KindArray {
		aSizes = v.Array
	}
	if v, ok := sub.MapGet("PartETags"); ok && v.Kind == valuetree.KindArray {
		eTags = v.Array
	}

	parts := make([]Part, len(numsVal.Array))
	for i := range numsVal.Array {
		num, ok := numsVal.Array[i].AsUint64()
		if !ok {
			return nil, fmt.Errorf("sidecar: PartNums[%d] is not an integer", i)
		}
		size, ok := sizesVal.Array[i].AsInt64()
		if !ok {
			return nil, fmt.Errorf("sidecar: PartSizes[%d] is not an integer", i)
		}
		p := Part{Number: int(num), Size: size, ActualSize: size}
		if i < len(aSizes) {
			if a, ok := aSizes[i].AsInt64(); ok {
				p.ActualSize = a
			}
		}
		if i < len(eTags) {
			if s, ok := eTags[i].AsString(); ok {
				p.ETag = s
			}
		}
		parts[i] = p
	}
	return parts, nil
}

func projectStringMap(v valuetree.Value, field string) (map[string]string, error) {
	out := map[string]string{}
	mv, ok := v.MapGet(field)
	if !ok {
		return out, nil
	}
	if mv.Kind != valuetree.KindMap {
		return nil, fmt.Errorf("sidecar: %s is not a map", field)
	}
	for _, e := range mv.Map {
		k, ok := e.Key.AsString()
		if !ok {
			continue // non-string keys are ignored, same policy as unknown keys
		}
		var sv string
		switch {
		case e.Value.Kind == valuetree.KindString:
			sv, _ = e.Value.AsString()
		case e.Value.Kind == valuetree.KindBytes:
			b, _ := e.Value.AsBytes()
			if field == "MetaSys" && k == "etag" {
				sv = hex.EncodeToString(b)
			} else {
				sv = string(b)
			}
		default:
			continue
		}
		out[k] = sv
	}
	return out, nil
}

func requiredUint(v valuetree.Value, field string) (uint64, error) {
	fv, ok := v.MapGet(field)
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	n, ok := fv.AsUint64()
	if !ok {
		return 0, fmt.Errorf("sidecar: field %q is not an unsigned integer", field)
	}
	return n, nil
}

func requiredInt64(v valuetree.Value, field string) (int64, error) {
	fv, ok := v.MapGet(field)
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	n, ok := fv.AsInt64()
	if !ok {
		return 0, fmt.Errorf("sidecar: field %q is not an integer", field)
	}
	return n, nil
}

func requiredBytes16(v valuetree.Value, field string) ([16]byte, error) {
	var out [16]byte
	fv, ok := v.MapGet(field)
	if !ok {
		return out, &MissingFieldError{Field: field}
	}
	b, ok := fv.AsBytes()
	if !ok || len(b) != 16 {
		return out, fmt.Errorf("sidecar: field %q is not a 16-byte value", field)
	}
	copy(out[:], b)
	return out, nil
}
