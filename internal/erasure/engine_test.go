package erasure

import (
	"bytes"
	"testing"
)

func encodeFixture(t *testing.T, data int, parity int, block []byte) [][]byte {
	t.Helper()
	shardSize := (len(block) + data - 1) / data
	shards := make([][]byte, data+parity)
	for i := 0; i < data; i++ {
		shards[i] = make([]byte, shardSize)
		start := i * shardSize
		end := start + shardSize
		if start < len(block) {
			n := copy(shards[i], block[start:min(end, len(block))])
			_ = n
		}
	}
	enc, err := NewEngine(data, parity)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := enc.rs.Encode(shards); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return shards
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestReconstructDataAllPresent(t *testing.T) {
	block := bytes.Repeat([]byte{0x42}, 16)
	shards := encodeFixture(t, 4, 2, block)

	eng, err := NewEngine(4, 2)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	shardSize := len(shards[0])
	got, err := eng.ReconstructData(shards, shardSize)
	if err != nil {
		t.Fatalf("ReconstructData: %v", err)
	}
	joined := bytes.Join(got, nil)
	if !bytes.Equal(joined[:len(block)], block) {
		t.Errorf("reconstructed data mismatch: got %x, want %x", joined[:len(block)], block)
	}
}

func TestReconstructDataMissingShard(t *testing.T) {
	block := bytes.Repeat([]byte{0x7a}, 16)
	shards := encodeFixture(t, 4, 2, block)
	present := append([][]byte(nil), shards...)
	present[1] = nil // drop one data shard, still have 5 of 6

	eng, err := NewEngine(4, 2)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	got, err := eng.ReconstructData(present, len(shards[0]))
	if err != nil {
		t.Fatalf("ReconstructData: %v", err)
	}
	joined := bytes.Join(got, nil)
	if !bytes.Equal(joined[:len(block)], block) {
		t.Errorf("reconstructed data mismatch after missing shard: got %x, want %x", joined[:len(block)], block)
	}
}

func TestReconstructDataInsufficientShards(t *testing.T) {
	block := bytes.Repeat([]byte{0x11}, 16)
	shards := encodeFixture(t, 4, 2, block)
	present := append([][]byte(nil), shards...)
	present[0] = nil
	present[1] = nil
	present[4] = nil // only 3 of 6 present, need 4

	eng, err := NewEngine(4, 2)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	_, err = eng.ReconstructData(present, len(shards[0]))
	if err == nil {
		t.Fatal("expected insufficient shards error")
	}
	var ierr *InsufficientShardsError
	if !asInsufficient(err, &ierr) {
		t.Fatalf("expected *InsufficientShardsError, got %T: %v", err, err)
	}
	if ierr.Present != 3 || ierr.Required != 4 {
		t.Errorf("unexpected fields: %+v", ierr)
	}
}

func asInsufficient(err error, target **InsufficientShardsError) bool {
	if ie, ok := err.(*InsufficientShardsError); ok {
		*target = ie
		return true
	}
	return false
}

func TestReconstructDataDeterministicAcrossSubsets(t *testing.T) {
	block := bytes.Repeat([]byte{0x99}, 20)
	shards := encodeFixture(t, 4, 2, block)
	eng, err := NewEngine(4, 2)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	shardSize := len(shards[0])

	withoutFirst := append([][]byte(nil), shards...)
	withoutFirst[0] = nil
	got1, err := eng.ReconstructData(withoutFirst, shardSize)
	if err != nil {
		t.Fatalf("ReconstructData (drop data 0): %v", err)
	}

	withoutParity := append([][]byte(nil), shards...)
	withoutParity[5] = nil
	got2, err := eng.ReconstructData(withoutParity, shardSize)
	if err != nil {
		t.Fatalf("ReconstructData (drop parity 1): %v", err)
	}

	if !bytes.Equal(bytes.Join(got1, nil), bytes.Join(got2, nil)) {
		t.Error("reconstruction depends on which shards were present")
	}
}

func TestDataShardLayout(t *testing.T) {
	eng, err := NewEngine(4, 2)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := eng.DataShardLayout(1 << 20); got != (1<<20+3)/4 {
		t.Errorf("DataShardLayout: got %d, want %d", got, (1<<20+3)/4)
	}
}
