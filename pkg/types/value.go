package types

import (
	"bytes"
	"fmt"
	"sort"
	"time"
)

// ValueKind tags the variant carried by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindTimestamp
	KindList
	KindMap
	KindVector
)

// Value is the tagged sum type for every property a Node or Edge can carry,
// and every intermediate result the Cypher evaluator can produce. Only one
// of the typed fields is meaningful for a given Kind; the rest are zero.
//
// Value is a plain struct, not an interface, so that comparisons (ordering,
// equality, hashing for DISTINCT) are simple switches rather than dynamic
// dispatch, and so zero Value{} is a well-formed null.
type Value struct {
	Kind ValueKind

	I   int64
	F   float64
	S   string
	B   bool
	T   time.Time
	List []Value
	Map  map[string]Value
	Vec  []float32
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

func Int(v int64) Value       { return Value{Kind: KindInt, I: v} }
func Float(v float64) Value   { return Value{Kind: KindFloat, F: v} }
func Str(v string) Value      { return Value{Kind: KindString, S: v} }
func Bool(v bool) Value       { return Value{Kind: KindBool, B: v} }
func Timestamp(v time.Time) Value { return Value{Kind: KindTimestamp, T: v.UTC()} }
func List(v []Value) Value    { return Value{Kind: KindList, List: v} }
func Map(v map[string]Value) Value { return Value{Kind: KindMap, Map: v} }
func Vector(v []float32) Value { return Value{Kind: KindVector, Vec: v} }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Numeric reports whether v is an int or float, the two variants that
// coerce into each other for arithmetic and comparison (§3).
func (v Value) Numeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// AsFloat64 coerces an int or float Value to float64. Only meaningful when
// Numeric() is true.
func (v Value) AsFloat64() float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

// Truthy implements Cypher's boolean coercion for WHERE/CASE guards: only a
// genuine boolean participates; everything else (including null) is not
// true, but only null is not-false-either — callers needing three-valued
// logic should check IsNull() first and treat non-bool non-null as an error
// rather than silently coercing, matching the semantic-error kind in §7.
func (v Value) Truthy() (result bool, known bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// Compare defines the total order used for index key ordering (§3): each
// variant orders within itself, int and float coerce against each other,
// and any other cross-variant comparison has no defined order — ok is false
// and the result is not meaningful. Null sorts last among comparable kinds
// when ok is true for the "nulls-last" ORDER BY rule (§4.5 Sort); callers
// that need three-valued WHERE semantics do not use Compare directly, they
// use Equal/Less through the filter evaluator's null-propagating wrappers.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Kind == KindNull && b.Kind == KindNull {
		return 0, true
	}
	if a.Kind == KindNull {
		return 1, true // nulls sort last
	}
	if b.Kind == KindNull {
		return -1, true
	}

	if a.Numeric() && b.Numeric() {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	if a.Kind != b.Kind {
		return 0, false
	}

	switch a.Kind {
	case KindString:
		return strCompare(a.S, b.S), true
	case KindBool:
		if a.B == b.B {
			return 0, true
		}
		if !a.B {
			return -1, true
		}
		return 1, true
	case KindTimestamp:
		switch {
		case a.T.Before(b.T):
			return -1, true
		case a.T.After(b.T):
			return 1, true
		default:
			return 0, true
		}
	case KindList:
		return compareLists(a.List, b.List), true
	default:
		// Map and Vector have no defined total order (§3): they are
		// usable as property values but not as index or ORDER BY keys.
		return 0, false
	}
}

func strCompare(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareLists(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c, ok := Compare(a[i], b[i]); ok && c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal implements identity-level equality used for index lookups and
// property matching: coercing numerics, exact match otherwise. It never
// returns a "known"/"unknown" pair — for WHERE-clause three-valued equality
// (where comparing against null must yield null, not false) use the
// evaluator's Equals helper in the cypher package, which wraps this with
// null propagation.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Less reports a < b under Compare's total order. Used by Sort and by
// property-index range scans.
func Less(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c < 0
}

// HashKey returns a byte string suitable as a map key for DISTINCT/GROUP BY
// deduplication. It distinguishes kinds so that, e.g., the int 1 and the
// float 1.0 hash differently unless a caller has already normalized them —
// Cypher's DISTINCT compares by value identity post-coercion, so callers
// that need numeric-coercing distinctness should normalize before hashing.
func (v Value) HashKey() string {
	var buf bytes.Buffer
	writeHash(&buf, v)
	return buf.String()
}

func writeHash(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindInt:
		fmt.Fprintf(buf, "%d", v.I)
	case KindFloat:
		fmt.Fprintf(buf, "%g", v.F)
	case KindString:
		buf.WriteString(v.S)
	case KindBool:
		if v.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindTimestamp:
		fmt.Fprintf(buf, "%d", v.T.UnixNano())
	case KindList:
		for _, e := range v.List {
			writeHash(buf, e)
			buf.WriteByte(',')
		}
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(k)
			buf.WriteByte(':')
			writeHash(buf, v.Map[k])
			buf.WriteByte(',')
		}
	case KindVector:
		for _, f := range v.Vec {
			fmt.Fprintf(buf, "%g,", f)
		}
	}
}

// FromAny converts a Go native value (as produced by JSON decoding or a
// literal Cypher AST node) into a Value. It is the single choke point for
// "what counts as a property value" so that storage, WAL encoding, and the
// Cypher evaluator never disagree about it.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case string:
		return Str(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Timestamp(x), nil
	case []float32:
		return Vector(x), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			cv, err := FromAny(e)
			if err != nil {
				return Null, err
			}
			out[i] = cv
		}
		return List(out), nil
	case []Value:
		return List(x), nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			cv, err := FromAny(e)
			if err != nil {
				return Null, err
			}
			out[k] = cv
		}
		return Map(out), nil
	case Value:
		return x, nil
	default:
		return Null, fmt.Errorf("types: unsupported property value type %T", v)
	}
}

// Native converts a Value back to a plain Go value, the inverse of FromAny,
// used when serializing results to the external result-encoding surface
// (§6) or to JSON for export.
func (v Value) Native() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt:
		return v.I
	case KindFloat:
		return v.F
	case KindString:
		return v.S
	case KindBool:
		return v.B
	case KindTimestamp:
		return v.T
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.Native()
		}
		return out
	case KindVector:
		return v.Vec
	default:
		return nil
	}
}
