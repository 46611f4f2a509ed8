package operator

import "testing"

func itemsOf(payloads ...string) []ResultItem {
	out := make([]ResultItem, len(payloads))
	for i, p := range payloads {
		out[i] = ResultItem{Payload: []byte(p)}
	}
	return out
}

func TestOffsetLimit_SkipsOffsetThenEmitsLimit(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{Items: itemsOf("a", "b", "c", "d", "e"), Done: true},
	}}
	o := NewOffsetLimit(upstream, 2, 2)

	pulled := o.Pull(0)
	if len(pulled.Items) != 2 || string(pulled.Items[0].Payload) != "c" || string(pulled.Items[1].Payload) != "d" {
		t.Fatalf("got %v, want [c d]", pulled.Items)
	}
	if !pulled.Done {
		t.Fatal("expected Done once the limit window is satisfied")
	}
}

func TestOffsetLimit_StopsPullingUpstreamOnceDone(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{Items: itemsOf("a", "b"), Done: false},
		{Items: itemsOf("c"), Done: false},
	}}
	o := NewOffsetLimit(upstream, 0, 2)

	first := o.Pull(0)
	if !first.Done {
		t.Fatal("expected Done as soon as the limit is reached")
	}

	second := o.Pull(0)
	if len(second.Items) != 0 || !second.Done {
		t.Fatal("a satisfied OffsetLimit should not pull upstream again")
	}
	if upstream.idx != 1 {
		t.Fatalf("upstream.idx = %d, want 1 (second Pull must not touch upstream)", upstream.idx)
	}
}

func TestOffsetLimit_ZeroLimitCompletesWithoutPullingUpstream(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{Items: itemsOf("a"), Done: false},
	}}
	o := NewOffsetLimit(upstream, 0, 0)

	pulled := o.Pull(0)
	if !pulled.Done || len(pulled.Items) != 0 {
		t.Fatalf("got items=%v done=%v, want no items and Done", pulled.Items, pulled.Done)
	}
	if upstream.idx != 0 {
		t.Fatalf("upstream.idx = %d, want 0 (zero limit must not pull upstream)", upstream.idx)
	}
}

func TestTop_ZeroCompletesImmediately(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{Items: itemsOf("a"), Done: false},
	}}
	top := NewTop(upstream, 0)

	pulled := top.Pull(0)
	if !pulled.Done || len(pulled.Items) != 0 {
		t.Fatalf("got items=%v done=%v, want no items and Done", pulled.Items, pulled.Done)
	}
}

func TestTop_EmitsOnlyFirstN(t *testing.T) {
	upstream := &stubOperator{batches: []Pulled{
		{Items: itemsOf("a", "b", "c"), Done: true},
	}}
	top := NewTop(upstream, 2)

	pulled := top.Pull(0)
	if len(pulled.Items) != 2 || string(pulled.Items[0].Payload) != "a" || string(pulled.Items[1].Payload) != "b" {
		t.Fatalf("got %v, want [a b]", pulled.Items)
	}
	if !pulled.Done {
		t.Fatal("expected Done once n items are emitted")
	}
}
