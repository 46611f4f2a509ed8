package jsonvalue

import "testing"

func TestAccumulator_Sum(t *testing.T) {
	a := NewAccumulator(AggregateSum)
	a.Add(Number(1))
	a.Add(Number(2))
	a.Add(Number(3))

	got := a.Result()
	if got.Kind != KindNumber || got.Number != 6 {
		t.Fatalf("Sum = %+v, want 6", got)
	}
}

func TestAccumulator_SumGoesUndefinedOnNonNumeric(t *testing.T) {
	a := NewAccumulator(AggregateSum)
	a.Add(Number(1))
	a.Add(String("oops"))
	a.Add(Number(2))

	if got := a.Result(); got.Kind != KindUndefined {
		t.Fatalf("Sum with a non-numeric contributor = %+v, want Undefined", got)
	}
}

func TestAccumulator_Average(t *testing.T) {
	a := NewAccumulator(AggregateAverage)
	a.Add(Number(2))
	a.Add(Number(4))

	got := a.Result()
	if got.Kind != KindNumber || got.Number != 3 {
		t.Fatalf("Average = %+v, want 3", got)
	}
}

func TestAccumulator_AverageEmptyIsUndefined(t *testing.T) {
	a := NewAccumulator(AggregateAverage)
	if got := a.Result(); got.Kind != KindUndefined {
		t.Fatalf("Average of no contributions = %+v, want Undefined", got)
	}
}

func TestAccumulator_MinMax(t *testing.T) {
	min := NewAccumulator(AggregateMin)
	max := NewAccumulator(AggregateMax)
	for _, n := range []float64{5, 1, 9, 3} {
		min.Add(Number(n))
		max.Add(Number(n))
	}

	if got := min.Result(); got.Number != 1 {
		t.Fatalf("Min = %v, want 1", got.Number)
	}
	if got := max.Result(); got.Number != 9 {
		t.Fatalf("Max = %v, want 9", got.Number)
	}
}

func TestAccumulator_MakeSetDedupesByCanonicalDigest(t *testing.T) {
	a := NewAccumulator(AggregateMakeSet)
	a.Add(Number(1))
	a.Add(Number(2))
	a.Add(Number(1))

	got := a.Result()
	if len(got.Array) != 2 {
		t.Fatalf("MakeSet has %d elements, want 2 (duplicate should be dropped)", len(got.Array))
	}
}

func TestAccumulator_MakeListKeepsDuplicates(t *testing.T) {
	a := NewAccumulator(AggregateMakeList)
	a.Add(Number(1))
	a.Add(Number(1))

	got := a.Result()
	if len(got.Array) != 2 {
		t.Fatalf("MakeList has %d elements, want 2 (duplicates kept)", len(got.Array))
	}
}

func TestAccumulator_Count(t *testing.T) {
	a := NewAccumulator(AggregateCount)
	a.Add(Null)
	a.Add(String("x"))
	a.Add(Undefined)

	got := a.Result()
	if got.Number != 3 {
		t.Fatalf("Count = %v, want 3", got.Number)
	}
}
