package operator

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
)

type stubOperator struct {
	batches []Pulled
	idx     int
}

func (s *stubOperator) Pull(budget int) Pulled {
	if s.idx >= len(s.batches) {
		return Pulled{Done: true}
	}
	p := s.batches[s.idx]
	s.idx++
	return p
}

func TestDistinct_OrderedDropsAdjacentDuplicates(t *testing.T) {
	keys := []jsonvalue.Value{jsonvalue.Number(1), jsonvalue.Number(1), jsonvalue.Number(2)}
	upstream := &stubOperator{batches: []Pulled{
		{Items: []ResultItem{{Payload: []byte("a")}, {Payload: []byte("b")}, {Payload: []byte("c")}}, Done: true},
	}}
	i := 0
	d := NewDistinct(upstream, DistinctOrdered, func(ResultItem) jsonvalue.Value {
		k := keys[i]
		i++
		return k
	})

	pulled := d.Pull(0)
	if len(pulled.Items) != 2 {
		t.Fatalf("got %d items, want 2 (duplicate adjacent key dropped)", len(pulled.Items))
	}
	if string(pulled.Items[0].Payload) != "a" || string(pulled.Items[1].Payload) != "c" {
		t.Fatalf("got %v, want [a c]", pulled.Items)
	}
}

func TestDistinct_UnorderedDropsNonAdjacentDuplicates(t *testing.T) {
	keys := []jsonvalue.Value{jsonvalue.Number(1), jsonvalue.Number(2), jsonvalue.Number(1)}
	upstream := &stubOperator{batches: []Pulled{
		{Items: []ResultItem{{Payload: []byte("a")}, {Payload: []byte("b")}, {Payload: []byte("c")}}, Done: true},
	}}
	i := 0
	d := NewDistinct(upstream, DistinctUnordered, func(ResultItem) jsonvalue.Value {
		k := keys[i]
		i++
		return k
	})

	pulled := d.Pull(0)
	if len(pulled.Items) != 2 {
		t.Fatalf("got %d items, want 2 (non-adjacent duplicate dropped)", len(pulled.Items))
	}
	if string(pulled.Items[0].Payload) != "a" || string(pulled.Items[1].Payload) != "b" {
		t.Fatalf("got %v, want [a b]", pulled.Items)
	}
}

func TestDistinct_PassesThroughNeedsRequestAndDone(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{NeedsRequest: []string{"r0"}},
	}}
	d := NewDistinct(upstream, DistinctUnordered, func(ResultItem) jsonvalue.Value { return jsonvalue.Undefined })

	pulled := d.Pull(0)
	if len(pulled.NeedsRequest) != 1 || pulled.NeedsRequest[0] != "r0" {
		t.Fatalf("NeedsRequest = %v, want [r0]", pulled.NeedsRequest)
	}
}
