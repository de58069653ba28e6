package sidecar

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
)

// encodeMsgpack is a small, test-only msgpack encoder used to build
// sidecar fixtures. It is not part of the library surface: the library
// never writes sidecars, only reads them (spec.md's Non-goals).
func encodeMsgpack(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte{0xc0}
	case bool:
		if val {
			return []byte{0xc3}
		}
		return []byte{0xc2}
	case int:
		return encodeInt(int64(val))
	case int64:
		return encodeInt(val)
	case uint64:
		return encodeUint(val)
	case string:
		return encodeStr(val)
	case []byte:
		return encodeBin(val)
	case []any:
		out := encodeArrayHeader(len(val))
		for _, e := range val {
			out = append(out, encodeMsgpack(e)...)
		}
		return out
	case map[string]any:
		out := encodeMapHeader(len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, encodeStr(k)...)
			out = append(out, encodeMsgpack(val[k])...)
		}
		return out
	default:
		panic(fmt.Sprintf("sidecar fixture: unsupported type %T", v))
	}
}

func encodeInt(n int64) []byte {
	switch {
	case n >= 0 && n < 128:
		return []byte{byte(n)}
	case n < 0 && n >= -32:
		return []byte{byte(int8(n))}
	case n >= -(1 << 31) && n < (1<<31):
		out := []byte{0xd2, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(int32(n)))
		return out
	default:
		out := []byte{0xd3, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(out[1:], uint64(n))
		return out
	}
}

func encodeUint(n uint64) []byte {
	switch {
	case n < 128:
		return []byte{byte(n)}
	case n <= 0xff:
		return []byte{0xcc, byte(n)}
	case n <= 0xffff:
		out := []byte{0xcd, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xffffffff:
		out := []byte{0xce, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return out
	default:
		out := []byte{0xcf, 0, 0, 0, 0, 0, 0, 0, 0}
		binary.BigEndian.PutUint64(out[1:], n)
		return out
	}
}

func encodeStr(s string) []byte {
	b := []byte(s)
	n := len(b)
	switch {
	case n < 32:
		return append([]byte{0xa0 | byte(n)}, b...)
	case n < 256:
		return append([]byte{0xd9, byte(n)}, b...)
	case n < 65536:
		out := []byte{0xda, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return append(out, b...)
	default:
		out := []byte{0xdb, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return append(out, b...)
	}
}

func encodeBin(b []byte) []byte {
	n := len(b)
	switch {
	case n < 256:
		return append([]byte{0xc4, byte(n)}, b...)
	case n < 65536:
		out := []byte{0xc5, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return append(out, b...)
	default:
		out := []byte{0xc6, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return append(out, b...)
	}
}

func encodeArrayHeader(n int) []byte {
	switch {
	case n < 16:
		return []byte{0x90 | byte(n)}
	case n < 65536:
		out := []byte{0xdc, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return out
	default:
		out := []byte{0xdd, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return out
	}
}

func encodeMapHeader(n int) []byte {
	switch {
	case n < 16:
		return []byte{0x80 | byte(n)}
	case n < 65536:
		out := []byte{0xde, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return out
	default:
		out := []byte{0xdf, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return out
	}
}

// frameSidecar wraps an encoded payload in the fixed framing header
// and a correct CRC32C trailer, as buildSidecar's callers expect on disk.
func frameSidecar(major, minor byte, payload []byte) []byte {
	out := append([]byte{}, Magic[:]...)
	out = append(out, major, minor)
	out = append(out, payload...)

	table := crc32.MakeTable(crc32.Castagnoli)
	sum := crc32.Checksum(payload, table)
	trailer := []byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}
	return append(out, trailer...)
}

func buildSidecar(major, minor byte, versions []any) []byte {
	payload := encodeMsgpack(map[string]any{"Versions": versions})
	return frameSidecar(major, minor, payload)
}

func objectVersion(id, dataDir [16]byte, mtime int64, dataShards, parityShards int, blockSize int64, erasureIndex int, dist []int, partNums []int, partSizes []int64, metaSys, metaUsr map[string]string) map[string]any {
	distAny := make([]any, len(dist))
	for i, d := range dist {
		distAny[i] = d
	}
	numsAny := make([]any, len(partNums))
	for i, n := range partNums {
		numsAny[i] = n
	}
	sizesAny := make([]any, len(partSizes))
	for i, s := range partSizes {
		sizesAny[i] = s
	}
	sysAny := map[string]any{}
	for k, v := range metaSys {
		sysAny[k] = v
	}
	usrAny := map[string]any{}
	for k, v := range metaUsr {
		usrAny[k] = v
	}

	v2obj := map[string]any{
		"ID":        id[:],
		"DDir":      dataDir[:],
		"MTime":     mtime,
		"EcAlgo":    ecAlgoReedSolomon,
		"EcM":       dataShards,
		"EcN":       parityShards,
		"EcBSize":   blockSize,
		"EcIndex":   erasureIndex,
		"EcDist":    distAny,
		"CSumAlgo":  csumAlgoHighwayHash256,
		"PartNums":  numsAny,
		"PartSizes": sizesAny,
		"MetaSys":   sysAny,
		"MetaUsr":   usrAny,
	}
	return map[string]any{"Type": "Object", "V2Obj": v2obj}
}

func deleteMarkerVersion(id [16]byte, mtime int64) map[string]any {
	return map[string]any{"Type": "DeleteMarker", "DeleteMarker": map[string]any{
		"ID":    id[:],
		"MTime": mtime,
	}}
}

func legacyVersion() map[string]any {
	return map[string]any{"Type": "Legacy"}
}
