// Package decode orchestrates the sidecar, shard, and erasure packages to
// reassemble an object's byte stream from its shard files, tolerating up
// to ParityShards absent shards per block; a shard-source failure aborts
// the decode.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dialohq/xlrecover/internal/erasure"
	"github.com/dialohq/xlrecover/internal/shard"
	"github.com/dialohq/xlrecover/internal/sidecar"
	"github.com/dialohq/xlrecover/internal/source"
)

// ErrLegacyUnsupported means the selected sidecar version was a legacy
// record, which this decoder refuses to interpret.
var ErrLegacyUnsupported = errors.New("decode: legacy object version cannot be decoded")

// ErrSizeOverflow means a size computation (block count, shard size, or
// part-size accumulation) would overflow a 64-bit signed integer.
var ErrSizeOverflow = errors.New("decode: size arithmetic overflow")

// InsufficientShardsError reports the part and block at which
// reconstruction failed for lack of present data shards.
type InsufficientShardsError struct {
	Part     int
	Block    int
	Present  int
	Required int
}

func (e *InsufficientShardsError) Error() string {
	return fmt.Sprintf("decode: part %d block %d: have %d shards, need %d", e.Part, e.Block, e.Present, e.Required)
}

// ShardSourceFailureError wraps a failure reported by the shard-source
// itself, as opposed to a normal absent result.
type ShardSourceFailureError struct {
	DiskIndex int
	Err       error
}

func (e *ShardSourceFailureError) Error() string {
	return fmt.Sprintf("decode: shard source failed on disk %d: %v", e.DiskIndex, e.Err)
}

func (e *ShardSourceFailureError) Unwrap() error { return e.Err }

// InvalidDistributionError means meta.Distribution is not a permutation
// of 1..D+P. Checked independently of sidecar.Parse's own validation
// since callers may construct an ObjectMeta directly.
type InvalidDistributionError struct {
	Reason string
}

func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("decode: invalid distribution: %s", e.Reason)
}

// Options controls decode behavior.
type Options struct {
	// SkipBitrotCheck disables per-block HighwayHash-256 verification.
	// Diagnostic only; never set by the default decode path.
	SkipBitrotCheck bool
}

// Object reconstructs meta's full byte stream by reading shards through
// src, returning a single buffer. Large objects should prefer ObjectTo.
func Object(meta *sidecar.ObjectMeta, src source.Source, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := ObjectTo(&buf, meta, src, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectTo streams meta's reconstructed byte stream to w, one block at a
// time, so the output is never buffered whole. Each part's shard files
// are read into memory in full before that part's blocks are decoded, so
// peak memory grows with the largest part's shard files.
func ObjectTo(w io.Writer, meta *sidecar.ObjectMeta, src source.Source, opts Options) error {
	switch meta.Kind {
	case sidecar.VersionDeleteMarker:
		return nil
	case sidecar.VersionLegacy:
		return ErrLegacyUnsupported
	}

	total := meta.DataShards + meta.ParityShards
	if err := validateDistribution(meta.Distribution, total); err != nil {
		return err
	}

	var sizeCheck int64
	for _, p := range meta.Parts {
		if p.Size <= 0 {
			return fmt.Errorf("decode: part %d has non-positive size %d", p.Number, p.Size)
		}
		next, ok := addChecked(sizeCheck, p.Size)
		if !ok {
			return ErrSizeOverflow
		}
		sizeCheck = next
	}

	eng, err := erasure.NewEngine(meta.DataShards, meta.ParityShards)
	if err != nil {
		return err
	}

	shardBlockSize64 := eng.DataShardLayout(meta.BlockSize)
	if shardBlockSize64 <= 0 || shardBlockSize64 > math.MaxInt32 {
		return ErrSizeOverflow
	}
	shardBlockSize := int(shardBlockSize64)

	reader := shard.NewReader(src)
	dataDir := meta.DataDirString()
	verify := !opts.SkipBitrotCheck

	for _, part := range meta.Parts {
		numBlocks, err := ceilDivChecked(part.Size, meta.BlockSize)
		if err != nil {
			return err
		}
		if ok := mulFits(numBlocks, shardBlockSize64); !ok {
			return ErrSizeOverflow
		}

		shardBytes := make([][]byte, total)
		iters := make([]*shard.BlockIter, total)
		for s := 0; s < total; s++ {
			data, present, err := reader.ReadPartShard(s, meta.Bucket, meta.Key, dataDir, part.Number, numBlocks, shardBlockSize)
			if err != nil {
				var lme *shard.LengthMismatchError
				if errors.As(err, &lme) {
					return err
				}
				return &ShardSourceFailureError{DiskIndex: s, Err: err}
			}
			if !present {
				continue
			}
			shardBytes[s] = data
			it, err := shard.IterBlocks(data, numBlocks, shardBlockSize, s, verify)
			if err != nil {
				return err
			}
			iters[s] = it
		}

		for b := int64(0); b < numBlocks; b++ {
			logical := make([][]byte, total)
			blockLen := shardBlockSize
			for s := 0; s < total; s++ {
				if iters[s] == nil {
					continue
				}
				block, ok, err := iters[s].Next()
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				// Distribution was already validated as a permutation of
				// 1..total above, so meta.Distribution[s]-1 is in range
				// and unique across s.
				logical[meta.Distribution[s]-1] = block
				if len(block) < blockLen {
					blockLen = len(block)
				}
			}

			recovered, err := eng.ReconstructData(logical, shardBlockSize)
			if err != nil {
				var ise *erasure.InsufficientShardsError
				if errors.As(err, &ise) {
					return &InsufficientShardsError{Part: part.Number, Block: int(b), Present: ise.Present, Required: ise.Required}
				}
				return err
			}
			if blockLen < shardBlockSize {
				// A short final frame carries fewer bytes per shard; the
				// engine zero-extended those shards, so cut every data
				// shard back to the frame's length before joining them.
				for i := range recovered {
					recovered[i] = recovered[i][:blockLen]
				}
			}

			contribution := meta.BlockSize
			if b == numBlocks-1 {
				contribution = part.Size - b*meta.BlockSize
			}
			if contribution < 0 || contribution > meta.BlockSize {
				return ErrSizeOverflow
			}
			if err := writeTrimmed(w, recovered, contribution); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTrimmed(w io.Writer, shards [][]byte, limit int64) error {
	var written int64
	for _, s := range shards {
		if written >= limit {
			break
		}
		take := int64(len(s))
		if written+take > limit {
			take = limit - written
		}
		if _, err := w.Write(s[:take]); err != nil {
			return fmt.Errorf("decode: write output: %w", err)
		}
		written += take
	}
	return nil
}

// validateDistribution rejects anything but a permutation of 1..total:
// wrong length, an out-of-range value, or a duplicate (which would alias
// two disk slots onto the same logical shard index and silently corrupt
// reconstruction).
func validateDistribution(dist []int, total int) error {
	if len(dist) != total {
		return &InvalidDistributionError{Reason: fmt.Sprintf("length %d does not match D+P %d", len(dist), total)}
	}
	seen := make([]bool, total+1)
	for i, v := range dist {
		if v < 1 || v > total {
			return &InvalidDistributionError{Reason: fmt.Sprintf("distribution[%d]=%d out of range [1,%d]", i, v, total)}
		}
		if seen[v] {
			return &InvalidDistributionError{Reason: fmt.Sprintf("distribution[%d]=%d duplicates an earlier entry", i, v)}
		}
		seen[v] = true
	}
	return nil
}

func ceilDivChecked(a, b int64) (int64, error) {
	if b <= 0 {
		return 0, fmt.Errorf("decode: non-positive block size %d", b)
	}
	if a < 0 {
		return 0, ErrSizeOverflow
	}
	if a > math.MaxInt64-b+1 {
		return 0, ErrSizeOverflow
	}
	return (a + b - 1) / b, nil
}

func mulFits(a, b int64) bool {
	if a == 0 || b == 0 {
		return true
	}
	return a <= math.MaxInt64/b
}

func addChecked(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
