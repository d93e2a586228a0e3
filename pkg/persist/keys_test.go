package persist

import (
	"bytes"
	"sort"
	"testing"

	"github.com/samyama/samyama/pkg/types"
)

func TestEncodeOrderedPreservesIntOrder(t *testing.T) {
	values := []int64{-100, -1, 0, 1, 42, 1000}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = EncodeOrdered(types.Int(v))
	}
	for i := 1; i < len(encoded); i++ {
		if bytes.Compare(encoded[i-1], encoded[i]) >= 0 {
			t.Fatalf("encoding for %d should sort before %d", values[i-1], values[i])
		}
	}
}

func TestEncodeOrderedPreservesFloatOrder(t *testing.T) {
	values := []float64{-3.5, -0.1, 0, 0.1, 2.75}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = EncodeOrdered(types.Float(v))
	}
	for i := 1; i < len(encoded); i++ {
		if bytes.Compare(encoded[i-1], encoded[i]) >= 0 {
			t.Fatalf("encoding for %v should sort before %v", values[i-1], values[i])
		}
	}
}

func TestEncodeOrderedNullSortsFirst(t *testing.T) {
	if bytes.Compare(EncodeOrdered(types.Null), EncodeOrdered(types.Int(-1000))) >= 0 {
		t.Fatalf("null encoding should sort before any int encoding")
	}
}

func TestEncodeOrderedStringLexicographic(t *testing.T) {
	values := []string{"alice", "bob", "carol"}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = EncodeOrdered(types.Str(v))
	}
	if !sort.SliceIsSorted(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 }) {
		t.Fatalf("string encodings not in lexicographic order: %v", encoded)
	}
}

func TestKeyHelpersIncludeTenantPrefix(t *testing.T) {
	k1 := NodeKey("tenant-a", types.NodeID(1))
	k2 := NodeKey("tenant-b", types.NodeID(1))
	if bytes.Equal(k1, k2) {
		t.Fatalf("keys for distinct tenants must differ")
	}
}

func TestPropIndexPrefixIsPrefixOfEntryKey(t *testing.T) {
	prefix := PropIndexPrefix("t1", "Person", "age")
	key := PropIndexKey("t1", "Person", "age", types.Int(30), types.NodeID(7))
	if !bytes.HasPrefix(key, prefix) {
		t.Fatalf("entry key %v should have prefix %v", key, prefix)
	}
}
