package pkey

import "testing"

func TestEPK_DeterministicAndStable(t *testing.T) {
	c := NewComputer(0)
	key := Key{String("tenant-42")}

	a, err := c.EPK(key, V2)
	if err != nil {
		t.Fatalf("EPK: %v", err)
	}
	b, err := c.EPK(key, V2)
	if err != nil {
		t.Fatalf("EPK: %v", err)
	}
	if a != b {
		t.Fatalf("EPK not deterministic: %q vs %q", a, b)
	}
}

func TestEPK_DifferentVersionsDiffer(t *testing.T) {
	c := NewComputer(0)
	key := Key{String("tenant-42")}

	v1, err := c.EPK(key, V1)
	if err != nil {
		t.Fatalf("EPK v1: %v", err)
	}
	v2, err := c.EPK(key, V2)
	if err != nil {
		t.Fatalf("EPK v2: %v", err)
	}
	if v1 == v2 {
		t.Fatal("v1 and v2 EPKs for the same value should generally differ")
	}
}

func TestEPK_UndefinedAndNullDiffer(t *testing.T) {
	c := NewComputer(0)

	u, err := c.EPK(Key{Undefined()}, V2)
	if err != nil {
		t.Fatalf("EPK(undefined): %v", err)
	}
	n, err := c.EPK(Key{Null()}, V2)
	if err != nil {
		t.Fatalf("EPK(null): %v", err)
	}
	if u == n {
		t.Fatal("undefined and null must produce distinct EPKs")
	}
}

func TestEPK_BoolDoesNotCollideWithNumericZeroOrOne(t *testing.T) {
	c := NewComputer(0)

	boolFalse, _ := c.EPK(Key{Bool(false)}, V2)
	boolTrue, _ := c.EPK(Key{Bool(true)}, V2)
	numZero, _ := c.EPK(Key{Number(0)}, V2)
	numOne, _ := c.EPK(Key{Number(1)}, V2)

	seen := map[string]bool{}
	for _, epk := range []string{boolFalse, boolTrue, numZero, numOne} {
		if seen[epk] {
			t.Fatalf("bool/number EPK collision among %v", []string{boolFalse, boolTrue, numZero, numOne})
		}
		seen[epk] = true
	}
}

func TestEPK_HierarchicalLongerThanFirstComponent(t *testing.T) {
	c := NewComputer(0)

	one, err := c.EPK(Key{String("a")}, V2)
	if err != nil {
		t.Fatalf("EPK 1-component: %v", err)
	}
	two, err := c.EPK(Key{String("a"), String("b")}, V2)
	if err != nil {
		t.Fatalf("EPK 2-component: %v", err)
	}
	three, err := c.EPK(Key{String("a"), String("b"), String("c")}, V2)
	if err != nil {
		t.Fatalf("EPK 3-component: %v", err)
	}

	if len(two) <= len(one) {
		t.Fatalf("2-component EPK (%d chars) should be longer than 1-component (%d chars)", len(two), len(one))
	}
	if len(three) <= len(two) {
		t.Fatalf("3-component EPK (%d chars) should be longer than 2-component (%d chars)", len(three), len(two))
	}
}

func TestEPK_RejectsTooManyComponents(t *testing.T) {
	c := NewComputer(0)
	_, err := c.EPK(Key{String("a"), String("b"), String("c"), String("d")}, V2)
	if err == nil {
		t.Fatal("expected an error for a 4-component partition key")
	}
}

func TestEPK_RejectsEmptyKey(t *testing.T) {
	c := NewComputer(0)
	_, err := c.EPK(Key{}, V2)
	if err == nil {
		t.Fatal("expected an error for an empty partition key")
	}
}

func TestEPK_CacheReturnsSameValueAsUncached(t *testing.T) {
	cached := NewComputer(16)
	uncached := NewComputer(0)
	key := Key{Number(3.14), String("x")}

	a, err := cached.EPK(key, V2)
	if err != nil {
		t.Fatalf("cached EPK: %v", err)
	}
	b, err := cached.EPK(key, V2) // second call should hit the cache
	if err != nil {
		t.Fatalf("cached EPK (hit): %v", err)
	}
	c, err := uncached.EPK(key, V2)
	if err != nil {
		t.Fatalf("uncached EPK: %v", err)
	}
	if a != b || a != c {
		t.Fatalf("cached and uncached EPKs diverged: %q, %q, %q", a, b, c)
	}
}
