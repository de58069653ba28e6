// Package shard reads one part's shard bytes through a source.Source and
// slices them into bitrot-verified fixed-size blocks.
package shard

import (
	"fmt"

	"github.com/dialohq/xlrecover/internal/bitrot"
	"github.com/dialohq/xlrecover/internal/source"
)

// checksumSize is the HighwayHash-256 digest prefixed to every block.
const checksumSize = bitrot.Size

// BitrotError reports that a verified block's stored checksum did not
// match its bytes.
type BitrotError struct {
	DiskIndex  int
	BlockIndex int
}

func (e *BitrotError) Error() string {
	return fmt.Sprintf("shard: bitrot detected on disk %d block %d", e.DiskIndex, e.BlockIndex)
}

// LengthMismatchError means a shard file's on-disk length falls outside
// the range implied by spec.md §3's invariant: numBlocks full frames of
// (checksum_size + shard_block_size), except the last frame's body,
// which may be anywhere from one byte to shard_block_size.
type LengthMismatchError struct {
	DiskIndex  int
	PartNumber int
	Got        int64
	WantMin    int64
	WantMax    int64
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("shard: disk %d part %d: length %d outside expected range [%d,%d]",
		e.DiskIndex, e.PartNumber, e.Got, e.WantMin, e.WantMax)
}

// expectedLengthRange returns the inclusive range of valid on-disk shard
// lengths for numBlocks frames of shardBlockSize body bytes each, where
// only the final frame's body may be shorter than shardBlockSize.
func expectedLengthRange(numBlocks int64, shardBlockSize int) (min, max int64) {
	if numBlocks <= 0 {
		return 0, 0
	}
	full := int64(checksumSize + shardBlockSize)
	min = (numBlocks-1)*full + int64(checksumSize) + 1
	max = numBlocks * full
	return min, max
}

// Reader fetches part shards through a Source.
type Reader struct {
	src source.Source
}

// NewReader wraps src.
func NewReader(src source.Source) *Reader {
	return &Reader{src: src}
}

// ReadPartShard fetches the raw shard bytes for one disk slot's
// contribution to a part. A false return with a nil error means the
// shard-source reported the shard absent — a normal, recoverable event.
// numBlocks and shardBlockSize describe the part's expected frame layout;
// a shard whose length falls outside that envelope (truncated, or padded
// with trailing garbage) is rejected with a LengthMismatchError rather
// than silently fed to the block iterator.
func (r *Reader) ReadPartShard(diskIndex int, bucket, key, dataDir string, partNum int, numBlocks int64, shardBlockSize int) ([]byte, bool, error) {
	data, present, err := r.src.ReadShard(diskIndex, bucket, key, dataDir, partNum)
	if err != nil {
		return nil, false, fmt.Errorf("shard: source failure on disk %d: %w", diskIndex, err)
	}
	if !present {
		return nil, false, nil
	}
	min, max := expectedLengthRange(numBlocks, shardBlockSize)
	got := int64(len(data))
	if got < min || got > max {
		return nil, false, &LengthMismatchError{DiskIndex: diskIndex, PartNumber: partNum, Got: got, WantMin: min, WantMax: max}
	}
	return data, true, nil
}

// BlockIter lazily slices a shard file's bytes into verified blocks. A
// shard file is a concatenation of (checksum || block-bytes) frames,
// each exactly shardBlockSize bytes of block-bytes except the last,
// whose block-bytes may be shorter.
type BlockIter struct {
	data           []byte
	pos            int
	shardBlockSize int
	diskIndex      int
	blockIndex     int
	verify         bool
}

// IterBlocks builds a BlockIter over shardBytes, after checking that
// len(shardBytes) falls within the range numBlocks frames of
// shardBlockSize implies (see LengthMismatchError). diskIndex is carried
// only to annotate BitrotError and LengthMismatchError. When verify is
// false, checksums are still parsed out of each frame but never
// compared — a diagnostic mode never used from the default decode path
// (see DecodeOptions.SkipBitrotCheck).
func IterBlocks(shardBytes []byte, numBlocks int64, shardBlockSize int, diskIndex int, verify bool) (*BlockIter, error) {
	min, max := expectedLengthRange(numBlocks, shardBlockSize)
	got := int64(len(shardBytes))
	if got < min || got > max {
		return nil, &LengthMismatchError{DiskIndex: diskIndex, Got: got, WantMin: min, WantMax: max}
	}
	return &BlockIter{data: shardBytes, shardBlockSize: shardBlockSize, diskIndex: diskIndex, verify: verify}, nil
}

// Next returns the next verified block, or ok=false once the shard bytes
// are exhausted.
func (it *BlockIter) Next() (block []byte, ok bool, err error) {
	remaining := len(it.data) - it.pos
	if remaining <= 0 {
		return nil, false, nil
	}
	if remaining < checksumSize {
		return nil, false, fmt.Errorf("shard: truncated frame header on disk %d at block %d", it.diskIndex, it.blockIndex)
	}
	checksum := it.data[it.pos : it.pos+checksumSize]
	body := it.data[it.pos+checksumSize:]

	blockLen := it.shardBlockSize
	if len(body) < blockLen {
		blockLen = len(body)
	}
	if blockLen <= 0 {
		return nil, false, fmt.Errorf("shard: empty tail frame on disk %d at block %d", it.diskIndex, it.blockIndex)
	}

	blockBytes := body[:blockLen]
	if it.verify {
		var expected [checksumSize]byte
		copy(expected[:], checksum)
		if !bitrot.Verify(expected, blockBytes) {
			return nil, false, &BitrotError{DiskIndex: it.diskIndex, BlockIndex: it.blockIndex}
		}
	}

	it.pos += checksumSize + blockLen
	it.blockIndex++
	return blockBytes, true, nil
}

// ReadBlockAt returns a single block by direct offset, without iterating
// from the start. This backs the library's read_shard_block operation
// (xlrecover.ReadShardBlock), which addresses one block at a time rather
// than walking the whole shard.
func ReadBlockAt(shardBytes []byte, blockIndex, shardBlockSize, diskIndex int, verify bool) ([]byte, error) {
	if blockIndex < 0 {
		return nil, fmt.Errorf("shard: negative block index %d", blockIndex)
	}
	frameSize := checksumSize + shardBlockSize
	frameStart := blockIndex * frameSize
	if frameStart+checksumSize > len(shardBytes) {
		return nil, fmt.Errorf("shard: block %d out of range (shard length %d)", blockIndex, len(shardBytes))
	}
	checksum := shardBytes[frameStart : frameStart+checksumSize]
	body := shardBytes[frameStart+checksumSize:]

	blockLen := shardBlockSize
	if len(body) < blockLen {
		blockLen = len(body)
	}
	if blockLen <= 0 {
		return nil, fmt.Errorf("shard: empty tail frame at block %d", blockIndex)
	}
	blockBytes := body[:blockLen]

	if verify {
		var expected [checksumSize]byte
		copy(expected[:], checksum)
		if !bitrot.Verify(expected, blockBytes) {
			return nil, &BitrotError{DiskIndex: diskIndex, BlockIndex: blockIndex}
		}
	}
	return blockBytes, nil
}
