// Package memory provides the byte-buffer pool and per-pipeline accounting
// used when provide_data() copies a gateway response payload into
// engine-owned memory. The engine never retains borrowed memory past the
// call that hands it in, so every byte a Pipeline keeps around between
// provide_data() and the run() calls that consume it came from this pool.
package memory

import (
	"sync"
)

// defaultBufferSizes are the size-class buckets used when a caller doesn't
// specify its own. They're sized for typical gateway page payloads: a few
// KB for a handful of items up to a few hundred KB for a full page.
var defaultBufferSizes = []uint64{1024, 4096, 16384, 65536, 262144}

// BufferPool is a size-classed pool of reusable byte slices, avoiding an
// allocation on every provide_data() call for the common case of
// similarly-sized response pages.
type BufferPool struct {
	pools []*sync.Pool
	sizes []uint64
}

// NewBufferPool creates a pool with the given size classes, or
// defaultBufferSizes if sizes is empty.
func NewBufferPool(sizes []uint64) *BufferPool {
	if len(sizes) == 0 {
		sizes = defaultBufferSizes
	}

	pool := &BufferPool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: make([]uint64, len(sizes)),
	}

	for i, size := range sizes {
		pool.sizes[i] = size
		pool.pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}

	return pool
}

func (p *BufferPool) Get(size uint64) []byte {
	idx := p.findBucket(size)
	if idx >= 0 {
		buf := p.pools[idx].Get().([]byte)
		return buf[:size]
	}
	return make([]byte, size)
}

func (p *BufferPool) Put(buf []byte) {
	capacity := uint64(cap(buf))
	idx := p.findBucket(capacity)
	if idx >= 0 && capacity == p.sizes[idx] {
		p.pools[idx].Put(buf)
	}
}

func (p *BufferPool) findBucket(size uint64) int {
	for i, bucketSize := range p.sizes {
		if size <= bucketSize {
			return i
		}
	}
	return -1
}

// Sizes returns the pool's size classes, largest-last.
func (p *BufferPool) Sizes() []uint64 {
	return p.sizes
}

// ClassFor returns the size class a buffer of n bytes would be drawn from,
// or 0 if n exceeds every class (in which case Get falls back to a
// one-off allocation that bypasses the pool entirely).
func (p *BufferPool) ClassFor(n uint64) uint64 {
	idx := p.findBucket(n)
	if idx < 0 {
		return 0
	}
	return p.sizes[idx]
}
