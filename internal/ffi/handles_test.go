package ffi

import "testing"

func TestHandleTable_PutGetRemove(t *testing.T) {
	tbl := newHandleTable()

	id := tbl.put(nil)
	if id == 0 {
		t.Fatal("handle 0 is reserved, put should never return it")
	}

	if _, ok := tbl.get(id); !ok {
		t.Fatal("expected the handle just put to be retrievable")
	}

	if _, ok := tbl.remove(id); !ok {
		t.Fatal("expected remove to find the handle")
	}
	if _, ok := tbl.get(id); ok {
		t.Fatal("handle should no longer be retrievable after remove")
	}
}

func TestHandleTable_AssignsDistinctIncreasingIDs(t *testing.T) {
	tbl := newHandleTable()

	a := tbl.put(nil)
	b := tbl.put(nil)
	if b <= a {
		t.Fatalf("expected ids to increase, got %d then %d", a, b)
	}
}

func TestHandleTable_UnknownHandleMissesCleanly(t *testing.T) {
	tbl := newHandleTable()
	if _, ok := tbl.get(999); ok {
		t.Fatal("expected a miss for a handle never put")
	}
	if _, ok := tbl.remove(999); ok {
		t.Fatal("expected remove of an unknown handle to report a miss")
	}
}
