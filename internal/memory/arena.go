package memory

// Arena tracks every buffer drawn from a BufferPool on one owner's behalf,
// so they can all be returned together. A Pipeline holds a single Arena for
// its whole lifetime and releases it in Free; buffers are not returned as
// individual responses' items drain, so a pipeline's allocations against its
// Caps budget grow with every provide_data() call until Free.
type Arena struct {
	buffers [][]byte
	pool    *BufferPool
	caps    *Caps
	owner   string
}

// NewArena creates an Arena that draws from pool and, if caps is non-nil,
// accounts every allocation against owner's budget.
func NewArena(pool *BufferPool, caps *Caps, owner string) *Arena {
	return &Arena{
		buffers: make([][]byte, 0, 4),
		pool:    pool,
		caps:    caps,
		owner:   owner,
	}
}

// Alloc returns a size-byte buffer, failing with ok=false if caps rejects
// the allocation against the owner's budget.
func (a *Arena) Alloc(size uint64) (buf []byte, ok bool) {
	if a.caps != nil && !a.caps.TryAllocate(a.owner, size) {
		return nil, false
	}

	buf = a.pool.Get(size)
	a.buffers = append(a.buffers, buf)
	return buf, true
}

// Release returns every buffer the arena allocated to the pool and frees
// the corresponding budget reservation. Safe to call once the arena's
// buffers are no longer referenced by any pending item.
func (a *Arena) Release() {
	for _, buf := range a.buffers {
		if a.caps != nil {
			a.caps.Free(a.owner, uint64(cap(buf)))
		}
		a.pool.Put(buf)
	}
	a.buffers = nil
}

// Size returns the number of buffers currently held by the arena.
func (a *Arena) Size() int {
	return len(a.buffers)
}
