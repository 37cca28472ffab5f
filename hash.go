package jsonldex

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// type tags keep values of different kinds from colliding even when their
// payload bytes match (1 vs 1.0 vs "1").
const (
	hashTagNull byte = iota + 1
	hashTagBool
	hashTagInt
	hashTagFloat
	hashTagString
	hashTagArray
	hashTagObject
)

// ValueHash computes a 64-bit structural hash of a document value. Equal
// values (per DeepEqual) always hash equal: array child hashes are combined
// in order, object entry hashes are combined commutatively so key order
// never matters. Collisions are possible, so a hash match is a candidate
// match, not proof of equality.
func ValueHash(v any) uint64 {
	switch x := v.(type) {
	case nil:
		return xxhash.Sum64([]byte{hashTagNull})
	case bool:
		payload := byte(0)
		if x {
			payload = 1
		}
		return xxhash.Sum64([]byte{hashTagBool, payload})
	case int64:
		var buf [9]byte
		buf[0] = hashTagInt
		binary.LittleEndian.PutUint64(buf[1:], uint64(x))
		return xxhash.Sum64(buf[:])
	case float64:
		var buf [9]byte
		buf[0] = hashTagFloat
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(x))
		return xxhash.Sum64(buf[:])
	case string:
		d := xxhash.New()
		d.Write([]byte{hashTagString})
		d.WriteString(x)
		return d.Sum64()
	case []any:
		d := xxhash.New()
		var buf [8]byte
		d.Write([]byte{hashTagArray})
		binary.LittleEndian.PutUint64(buf[:], uint64(len(x)))
		d.Write(buf[:])
		for _, c := range x {
			binary.LittleEndian.PutUint64(buf[:], ValueHash(c))
			d.Write(buf[:])
		}
		return d.Sum64()
	case map[string]any:
		// commutative combination: wrapping addition over per-entry hashes
		var sum uint64
		for k, c := range x {
			var pair [16]byte
			binary.LittleEndian.PutUint64(pair[:8], xxhash.Sum64String(k))
			binary.LittleEndian.PutUint64(pair[8:], ValueHash(c))
			sum += xxhash.Sum64(pair[:])
		}
		d := xxhash.New()
		var buf [8]byte
		d.Write([]byte{hashTagObject})
		binary.LittleEndian.PutUint64(buf[:], uint64(len(x)))
		d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], sum)
		d.Write(buf[:])
		return d.Sum64()
	}
	return xxhash.Sum64([]byte{0})
}
