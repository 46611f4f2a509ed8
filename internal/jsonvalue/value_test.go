package jsonvalue

import "testing"

func TestCompare_TypeRank(t *testing.T) {
	ordered := []Value{
		Undefined,
		Null,
		Bool(false),
		Bool(true),
		Number(-1),
		Number(0),
		Number(1),
		String("a"),
		String("b"),
		{Kind: KindArray, Array: []Value{Number(1)}},
		{Kind: KindObject, Object: map[string]Value{"a": Number(1)}},
	}

	for i := 0; i < len(ordered)-1; i++ {
		if Compare(ordered[i], ordered[i+1]) >= 0 {
			t.Fatalf("element %d (%+v) did not sort before element %d (%+v)", i, ordered[i], i+1, ordered[i+1])
		}
	}
}

func TestCompare_NaNSortsHighest(t *testing.T) {
	nan := Number(float64(0))
	nan.Number = nan.Number / nan.Number // NaN without importing math in the test

	if Compare(nan, Number(1e300)) <= 0 {
		t.Fatal("NaN should sort above every finite number")
	}
	if Compare(Number(1e300), nan) >= 0 {
		t.Fatal("finite number should sort below NaN")
	}
}

func TestCompare_BoolFalseBeforeTrue(t *testing.T) {
	if Compare(Bool(true), Bool(false)) <= 0 {
		t.Fatal("true should sort after false")
	}
}

func TestCompareTuple_Descending(t *testing.T) {
	a := []Value{Number(1), Number(2)}
	b := []Value{Number(1), Number(3)}

	if CompareTuple(a, b, []bool{false, false}) >= 0 {
		t.Fatal("ascending: a should sort before b")
	}
	if CompareTuple(a, b, []bool{false, true}) <= 0 {
		t.Fatal("descending on position 1: a should sort after b")
	}
}

func TestCanonicalDigest_KeyOrderIndependent(t *testing.T) {
	a := Value{Kind: KindObject, Object: map[string]Value{"a": Number(1), "b": Number(2)}}
	b := Value{Kind: KindObject, Object: map[string]Value{"b": Number(2), "a": Number(1)}}

	if CanonicalDigest(a) != CanonicalDigest(b) {
		t.Fatalf("digests diverged for key-reordered objects: %q vs %q", CanonicalDigest(a), CanonicalDigest(b))
	}
}

func TestCanonicalDigest_DistinguishesTypes(t *testing.T) {
	if CanonicalDigest(Number(1)) == CanonicalDigest(String("1")) {
		t.Fatal("number 1 and string \"1\" must not collide")
	}
	if CanonicalDigest(Null) == CanonicalDigest(Undefined) {
		t.Fatal("null and undefined must not collide")
	}
}

func TestFromAny_RoundTripsJSONShapes(t *testing.T) {
	v := FromAny(map[string]interface{}{
		"x": float64(1),
		"y": []interface{}{"a", nil, true},
	})
	if v.Kind != KindObject {
		t.Fatalf("want object, got kind %d", v.Kind)
	}
	if v.Object["x"].Kind != KindNumber {
		t.Fatal("field x should be a number")
	}
	if v.Object["y"].Kind != KindArray || len(v.Object["y"].Array) != 3 {
		t.Fatal("field y should be a 3-element array")
	}
}
