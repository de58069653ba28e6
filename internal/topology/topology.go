// Package topology parses a cluster topology-doc (MinIO's per-disk
// format.json) into the pool/set/disk structure a decode needs to map a
// disk back to its erasure-set position.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnsupportedVersion means the doc's "version" field was not one of
// the known values.
var ErrUnsupportedVersion = errors.New("topology: unsupported version")

var knownVersions = map[string]bool{"1": true, "2": true, "3": true}

// Doc is the parsed topology-doc: a pool's identity, the disk this copy
// describes, and the ordered matrix of erasure sets.
type Doc struct {
	PoolID   uuid.UUID
	Version  string
	ThisDisk uuid.UUID
	Sets     [][]uuid.UUID
}

type wireDoc struct {
	Version  string     `json:"version"`
	ID       string     `json:"id"`
	ThisDisk string     `json:"xl.this"`
	Sets     [][]string `json:"xl.sets"`
}

// Parse decodes a topology-doc's JSON bytes.
func Parse(data []byte) (*Doc, error) {
	var w wireDoc
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("topology: decode json: %w", err)
	}

	if !knownVersions[w.Version] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, w.Version)
	}

	poolID, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, fmt.Errorf("topology: parse pool id: %w", err)
	}
	thisDisk, err := uuid.Parse(w.ThisDisk)
	if err != nil {
		return nil, fmt.Errorf("topology: parse xl.this: %w", err)
	}

	sets := make([][]uuid.UUID, len(w.Sets))
	for i, row := range w.Sets {
		sets[i] = make([]uuid.UUID, len(row))
		for j, s := range row {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("topology: parse sets[%d][%d]: %w", i, j, err)
			}
			sets[i][j] = id
		}
	}

	return &Doc{PoolID: poolID, Version: w.Version, ThisDisk: thisDisk, Sets: sets}, nil
}

// ErrDiskNotFound means the given disk UUID does not appear in the
// topology's sets matrix.
var ErrDiskNotFound = errors.New("topology: disk not found in sets matrix")

// DiskIndex locates disk's position in the sets matrix. poolIdx is
// always 0: a single topology-doc describes one pool (see Doc.PoolID);
// the return value keeps the signature stable if multi-pool documents
// are added later.
func DiskIndex(doc *Doc, disk uuid.UUID) (poolIdx, setIdx, diskIdx int, err error) {
	for si, set := range doc.Sets {
		for di, id := range set {
			if id == disk {
				return 0, si, di, nil
			}
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: %s", ErrDiskNotFound, disk)
}
