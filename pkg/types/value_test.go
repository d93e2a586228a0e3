package types

import "testing"

func TestCompareNumericCoercion(t *testing.T) {
	cmp, ok := Compare(Int(3), Float(3.0))
	if !ok || cmp != 0 {
		t.Fatalf("expected int/float coercion to compare equal, got cmp=%d ok=%v", cmp, ok)
	}

	cmp, ok = Compare(Int(2), Float(3.5))
	if !ok || cmp >= 0 {
		t.Fatalf("expected 2 < 3.5, got cmp=%d ok=%v", cmp, ok)
	}
}

func TestCompareCrossVariantUndefined(t *testing.T) {
	if _, ok := Compare(Str("x"), Int(1)); ok {
		t.Fatal("expected string/int comparison to be undefined")
	}
	if _, ok := Compare(Map(map[string]Value{"a": Int(1)}), Map(map[string]Value{"a": Int(1)})); ok {
		t.Fatal("expected maps to have no defined total order")
	}
}

func TestCompareNullsSortLast(t *testing.T) {
	cmp, ok := Compare(Null, Int(1))
	if !ok || cmp <= 0 {
		t.Fatalf("expected null to sort after non-null, got cmp=%d ok=%v", cmp, ok)
	}
	cmp, ok = Compare(Null, Null)
	if !ok || cmp != 0 {
		t.Fatalf("expected null == null, got cmp=%d ok=%v", cmp, ok)
	}
}

func TestHashKeyDistinguishesIntAndFloat(t *testing.T) {
	if Int(1).HashKey() == Float(1.0).HashKey() {
		t.Fatal("expected int(1) and float(1.0) to hash differently without explicit coercion")
	}
}

func TestFromAnyRoundTrip(t *testing.T) {
	in := map[string]any{"a": int64(1), "b": []any{"x", 2.5, nil}}
	v, err := FromAny(in)
	if err != nil {
		t.Fatal(err)
	}
	out := v.Native()
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", out)
	}
	if m["a"] != int64(1) {
		t.Fatalf("expected a=1, got %v", m["a"])
	}
}

func TestSymbolTableInterning(t *testing.T) {
	st := NewSymbolTable()
	a := st.Intern("Person")
	b := st.Intern("Person")
	c := st.Intern("Org")
	if a != b {
		t.Fatal("expected repeated interning to return the same symbol")
	}
	if a == c {
		t.Fatal("expected distinct names to intern to distinct symbols")
	}
	if st.Name(a) != "Person" {
		t.Fatalf("expected Name to round-trip, got %q", st.Name(a))
	}
	if _, ok := st.Lookup("Ghost"); ok {
		t.Fatal("expected Lookup of never-interned name to fail")
	}
}

func TestIDAllocatorRestore(t *testing.T) {
	a := NewIDAllocator()
	_ = a.Next()
	_ = a.Next()
	a.Restore(100)
	if next := a.Next(); next != 101 {
		t.Fatalf("expected restore to fast-forward allocator, got %d", next)
	}
}
