package persist

import (
	"encoding/binary"
	"math"

	"github.com/samyama/samyama/pkg/types"
)

// Key prefixes for BadgerDB key layout, one byte each for efficiency,
// mirroring the teacher's key-prefix convention in its BadgerDB engine
// (nornicdb/pkg/storage/badger.go), extended with a leading tenant prefix
// so one BadgerDB instance can back every tenant's partition (§4.6).
const (
	prefixNode       = byte(0x01) // tenant | 0x01 | nodeID -> node record
	prefixEdge       = byte(0x02) // tenant | 0x02 | edgeID -> edge record
	prefixLabelIdx   = byte(0x03) // tenant | 0x03 | label | 0x00 | nodeID -> empty
	prefixOutAdj     = byte(0x04) // tenant | 0x04 | nodeID | 0x00 | edgeID -> empty
	prefixInAdj      = byte(0x05) // tenant | 0x05 | nodeID | 0x00 | edgeID -> empty
	prefixPropIdx    = byte(0x06) // tenant | 0x06 | label | 0x00 | prop | 0x00 | encoded-value | 0x00 | nodeID -> empty
	prefixMeta       = byte(0x07) // tenant | 0x07 | meta-key -> value (id allocator high-water marks, symbol table)
	prefixTenantMeta = byte(0xFE) // 0xFE | tenantID -> tenant record (not itself tenant-partitioned)
)

// NodeKey builds the BadgerDB key for a node record.
func NodeKey(tenant string, id types.NodeID) []byte {
	return appendUint64(tenantPrefix(tenant, prefixNode), uint64(id))
}

// EdgeKey builds the BadgerDB key for an edge record.
func EdgeKey(tenant string, id types.EdgeID) []byte {
	return appendUint64(tenantPrefix(tenant, prefixEdge), uint64(id))
}

// LabelIndexKey builds a label-index entry key.
func LabelIndexKey(tenant, label string, id types.NodeID) []byte {
	k := tenantPrefix(tenant, prefixLabelIdx)
	k = append(k, label...)
	k = append(k, 0x00)
	return appendUint64(k, uint64(id))
}

// LabelIndexPrefix builds the scan prefix for every node under label.
func LabelIndexPrefix(tenant, label string) []byte {
	k := tenantPrefix(tenant, prefixLabelIdx)
	k = append(k, label...)
	return append(k, 0x00)
}

// OutAdjKey builds an outgoing-adjacency entry key.
func OutAdjKey(tenant string, node types.NodeID, edge types.EdgeID) []byte {
	k := appendUint64(tenantPrefix(tenant, prefixOutAdj), uint64(node))
	k = append(k, 0x00)
	return appendUint64(k, uint64(edge))
}

// OutAdjPrefix builds the scan prefix for node's outgoing adjacency.
func OutAdjPrefix(tenant string, node types.NodeID) []byte {
	k := appendUint64(tenantPrefix(tenant, prefixOutAdj), uint64(node))
	return append(k, 0x00)
}

// InAdjKey builds an incoming-adjacency entry key.
func InAdjKey(tenant string, node types.NodeID, edge types.EdgeID) []byte {
	k := appendUint64(tenantPrefix(tenant, prefixInAdj), uint64(node))
	k = append(k, 0x00)
	return appendUint64(k, uint64(edge))
}

// InAdjPrefix builds the scan prefix for node's incoming adjacency.
func InAdjPrefix(tenant string, node types.NodeID) []byte {
	k := appendUint64(tenantPrefix(tenant, prefixInAdj), uint64(node))
	return append(k, 0x00)
}

// PropIndexKey builds a property-index entry key. Encoding the value with
// EncodeOrdered keeps range scans over this prefix naturally ordered by
// Badger's own lexicographic key order (§4.6 order-preserving encoding).
func PropIndexKey(tenant, label, prop string, value types.Value, id types.NodeID) []byte {
	k := tenantPrefix(tenant, prefixPropIdx)
	k = append(k, label...)
	k = append(k, 0x00)
	k = append(k, prop...)
	k = append(k, 0x00)
	k = append(k, EncodeOrdered(value)...)
	k = append(k, 0x00)
	return appendUint64(k, uint64(id))
}

// PropIndexPrefix builds the scan prefix for every entry of (label, prop).
func PropIndexPrefix(tenant, label, prop string) []byte {
	k := tenantPrefix(tenant, prefixPropIdx)
	k = append(k, label...)
	k = append(k, 0x00)
	k = append(k, prop...)
	return append(k, 0x00)
}

// MetaKey builds a metadata key (id allocator state, symbol table dumps).
func MetaKey(tenant, name string) []byte {
	return append(tenantPrefix(tenant, prefixMeta), name...)
}

// TenantRecordKey builds the key for a tenant registry record, which lives
// outside any tenant's own partition.
func TenantRecordKey(tenantID string) []byte {
	return append([]byte{prefixTenantMeta}, tenantID...)
}

// TenantMetaPrefix is the scan prefix covering every persisted tenant
// record, used to reload the registry from BadgerDB at startup.
func TenantMetaPrefix() []byte {
	return []byte{prefixTenantMeta}
}

func tenantPrefix(tenant string, kind byte) []byte {
	k := make([]byte, 0, len(tenant)+2)
	k = append(k, byte(len(tenant)))
	k = append(k, tenant...)
	k = append(k, kind)
	return k
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

// EncodeOrdered encodes a Value so that byte-lexicographic order on the
// result matches types.Compare's value order between values of the same
// kind, for use as a BadgerDB key component (§4.6). Across kinds the
// leading kind tag alone decides the order (null, bool, int, float,
// string, timestamp), so null sorts before everything, whereas
// types.Compare sorts it last, and ints and floats are not interleaved by
// numeric value. Ints are sign-flipped (XOR the sign bit) so negative
// numbers sort before positive ones under unsigned big-endian comparison;
// floats get the standard IEEE-754 bit-flip trick (flip all bits for
// negatives, flip just the sign bit for non-negatives). Strings and bools
// are naturally ordered already. Lists, maps, and vectors have no defined index order
// (§I: property index values are the five scalar kinds only) and are
// encoded as their HashKey for identity only, not for ordering.
func EncodeOrdered(v types.Value) []byte {
	switch v.Kind {
	case types.KindNull:
		return []byte{0x00}
	case types.KindBool:
		if v.B {
			return []byte{0x01, 0x01}
		}
		return []byte{0x01, 0x00}
	case types.KindInt:
		var buf [9]byte
		buf[0] = 0x02
		bits := uint64(v.I) ^ (1 << 63)
		binary.BigEndian.PutUint64(buf[1:], bits)
		return buf[:]
	case types.KindFloat:
		var buf [9]byte
		buf[0] = 0x03
		bits := math.Float64bits(v.F)
		if v.F >= 0 {
			bits |= 1 << 63
		} else {
			bits = ^bits
		}
		binary.BigEndian.PutUint64(buf[1:], bits)
		return buf[:]
	case types.KindString:
		out := make([]byte, 0, len(v.S)+1)
		out = append(out, 0x04)
		out = append(out, v.S...)
		return out
	case types.KindTimestamp:
		var buf [9]byte
		buf[0] = 0x05
		bits := uint64(v.T.UnixNano()) ^ (1 << 63)
		binary.BigEndian.PutUint64(buf[1:], bits)
		return buf[:]
	default:
		out := []byte{0xFF}
		return append(out, []byte(v.HashKey())...)
	}
}
