package operator

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/buffer"
	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
)

func orderedItem(payload string, key float64) buffer.Item {
	return buffer.Item{Payload: []byte(payload), OrderByItems: []jsonvalue.Value{jsonvalue.Number(key)}}
}

func TestOrderBy_MergesAscendingAcrossRanges(t *testing.T) {
	r0 := buffer.New("r0")
	r0.Push(orderedItem("a", 1), orderedItem("c", 3))
	r0.MarkOutstanding(1)
	if err := r0.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	r1 := buffer.New("r1")
	r1.Push(orderedItem("b", 2), orderedItem("d", 4))
	r1.MarkOutstanding(1)
	if err := r1.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	o := NewOrderBy([]string{"r0", "r1"}, map[string]*buffer.PartitionBuffer{"r0": r0, "r1": r1}, []bool{false})

	pulled := o.Pull(0)
	if !pulled.Done {
		t.Fatal("expected Done once both ranges are terminated and drained")
	}
	want := []string{"a", "b", "c", "d"}
	if len(pulled.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(pulled.Items), len(want))
	}
	for i, item := range pulled.Items {
		if string(item.Payload) != want[i] {
			t.Fatalf("item[%d] = %q, want %q", i, item.Payload, want[i])
		}
	}
}

func TestOrderBy_RequestsForIneligibleBuffer(t *testing.T) {
	r0 := buffer.New("r0")
	r0.Push(orderedItem("a", 1))
	r0.MarkOutstanding(1)
	if err := r0.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	r1 := buffer.New("r1") // empty, not terminated: ineligible

	o := NewOrderBy([]string{"r0", "r1"}, map[string]*buffer.PartitionBuffer{"r0": r0, "r1": r1}, []bool{false})

	pulled := o.Pull(0)
	if len(pulled.Items) != 0 {
		t.Fatalf("expected no items while a buffer is ineligible, got %d", len(pulled.Items))
	}
	if len(pulled.NeedsRequest) != 1 || pulled.NeedsRequest[0] != "r1" {
		t.Fatalf("NeedsRequest = %v, want [r1]", pulled.NeedsRequest)
	}
}

func TestOrderBy_DescendingOrder(t *testing.T) {
	// Each range's page arrives already sorted descending, as the gateway
	// returns it; the merge interleaves the ranges by comparing their heads.
	r0 := buffer.New("r0")
	r0.Push(orderedItem("c", 3), orderedItem("a", 1))
	r0.MarkOutstanding(1)
	if err := r0.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	r1 := buffer.New("r1")
	r1.Push(orderedItem("b", 2))
	r1.MarkOutstanding(1)
	if err := r1.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	o := NewOrderBy([]string{"r0", "r1"}, map[string]*buffer.PartitionBuffer{"r0": r0, "r1": r1}, []bool{true})

	pulled := o.Pull(0)
	if len(pulled.Items) != 3 || string(pulled.Items[0].Payload) != "c" || string(pulled.Items[1].Payload) != "b" ||
		string(pulled.Items[2].Payload) != "a" {
		t.Fatalf("got %v, want [c b a] descending", pulled.Items)
	}
}

func TestOrderBy_StopsWhenABufferRunsDryMidMerge(t *testing.T) {
	r0 := buffer.New("r0")
	r0.Push(orderedItem("a", 1))
	r0.MarkOutstanding(1)
	if err := r0.Accept(1, "more", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	r1 := buffer.New("r1")
	r1.Push(orderedItem("b", 5))
	r1.MarkOutstanding(1)
	if err := r1.Accept(1, "", nil); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	o := NewOrderBy([]string{"r0", "r1"}, map[string]*buffer.PartitionBuffer{"r0": r0, "r1": r1}, []bool{false})

	pulled := o.Pull(0)
	if len(pulled.Items) != 1 || string(pulled.Items[0].Payload) != "a" {
		t.Fatalf("got %v, want just [a] before r0 needs refilling", pulled.Items)
	}
	if len(pulled.NeedsRequest) != 1 || pulled.NeedsRequest[0] != "r0" {
		t.Fatalf("NeedsRequest = %v, want [r0]", pulled.NeedsRequest)
	}
}
