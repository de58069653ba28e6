// Package erasure reconstructs missing shards of a block using
// Reed-Solomon coding over GF(2^8), via github.com/klauspost/reedsolomon
// — the same library the real MinIO server depends on for this purpose
// (see SPEC_FULL.md's Domain Stack), and the one the teacher's own
// internal/erasure package wraps for its write-side encoder.
package erasure

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// InsufficientShardsError means fewer than the required data-shard count
// was present to reconstruct a block.
type InsufficientShardsError struct {
	Present  int
	Required int
}

func (e *InsufficientShardsError) Error() string {
	return fmt.Sprintf("erasure: insufficient shards: have %d, need %d", e.Present, e.Required)
}

// Engine reconstructs data shards of a fixed data+parity layout.
type Engine struct {
	rs     reedsolomon.Encoder
	data   int
	parity int
}

// NewEngine builds a reconstruction engine for a data+parity layout.
func NewEngine(dataShards, parityShards int) (*Engine, error) {
	rs, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("erasure: create reed-solomon encoder: %w", err)
	}
	return &Engine{rs: rs, data: dataShards, parity: parityShards}, nil
}

// DataShards and ParityShards report the engine's configured layout.
func (e *Engine) DataShards() int   { return e.data }
func (e *Engine) ParityShards() int { return e.parity }

// DataShardLayout returns the per-shard size for a block of blockSize
// bytes split across the engine's data-shard count: ceil(blockSize / D).
func (e *Engine) DataShardLayout(blockSize int64) int64 {
	return ceilDiv(blockSize, int64(e.data))
}

// ReconstructData recovers the data shards of one block from whatever
// shards are present. present must have length D+P, indexed by logical
// shard index (0..D+P-1, after the distribution permutation has already
// been applied by the caller); a nil entry means that shard is absent.
// Present shards shorter than shardBlockSize (the final, unpadded block
// of a shard file) are zero-padded in a private copy before the matrix
// math runs, matching the encode-side padding of the last data shard
// described in spec.md §4.F.
//
// Reconstruction from any subset of D present shards recovers
// bit-identical data, since a systematic MDS code has a unique solution;
// the klauspost encoder's deterministic matrix inversion is what
// satisfies the spec's "lowest-index-first" determinism requirement in
// practice — there is no second valid answer to disagree with.
func (e *Engine) ReconstructData(present [][]byte, shardBlockSize int) ([][]byte, error) {
	total := e.data + e.parity
	if len(present) != total {
		return nil, fmt.Errorf("erasure: expected %d shard slots, got %d", total, len(present))
	}

	have := 0
	shards := make([][]byte, total)
	for i, s := range present {
		if s == nil {
			continue
		}
		have++
		if len(s) == shardBlockSize {
			shards[i] = s
			continue
		}
		padded := make([]byte, shardBlockSize)
		copy(padded, s)
		shards[i] = padded
	}
	if have < e.data {
		return nil, &InsufficientShardsError{Present: have, Required: e.data}
	}

	if err := e.rs.ReconstructData(shards); err != nil {
		return nil, fmt.Errorf("erasure: reconstruct: %w", err)
	}
	return shards[:e.data], nil
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
