package ffi

import (
	"sync"

	"github.com/cosmosquery/crosspartition/internal/pipeline"
)

// handleTable assigns opaque uint64 handles to live *pipeline.Pipeline
// values crossing the C ABI with a map+mutex+next-id table: a cgo caller
// only ever holds an integer,
// never a Go pointer, so the garbage collector stays free to move or
// collect anything reachable only from this table's own entry.
type handleTable struct {
	mu      sync.RWMutex
	entries map[uint64]*pipeline.Pipeline
	nextID  uint64
}

func newHandleTable() *handleTable {
	return &handleTable{
		entries: make(map[uint64]*pipeline.Pipeline),
		nextID:  1, // 0 is reserved for "no handle" / a failed create
	}
}

func (t *handleTable) put(p *pipeline.Pipeline) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.entries[id] = p
	return id
}

func (t *handleTable) get(id uint64) (*pipeline.Pipeline, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.entries[id]
	return p, ok
}

func (t *handleTable) remove(id uint64) (*pipeline.Pipeline, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return p, ok
}

// handles is the process-wide table every exported function indexes into.
// One process hosts however many pipelines an embedder opens concurrently;
// there is no per-Client partitioning at the FFI layer, matching
// pkg/client.Client's own "one shared runtime" model.
var handles = newHandleTable()
