package memory

import (
	"sync"
	"sync/atomic"
)

// Caps enforces a process-wide memory ceiling across every Pipeline plus an
// optional per-pipeline share of it, so one query with a pathologically
// large page can't starve every other pipeline sharing the process.
type Caps struct {
	mu sync.RWMutex

	globalCapacity     uint64
	defaultPerPipeline uint64
	perPipeline        map[string]uint64
	perPipelineUse     map[string]*uint64
	globalUsage        uint64
}

// NewCaps creates a Caps with a globalCapacityMB-wide budget and
// perPipelineLimitMB default share for any pipeline that doesn't register
// its own limit (0 means 1/10th of the global budget).
func NewCaps(globalCapacityMB uint64, perPipelineLimitMB uint64) *Caps {
	c := &Caps{
		globalCapacity: globalCapacityMB * 1024 * 1024,
		perPipeline:    make(map[string]uint64),
		perPipelineUse: make(map[string]*uint64),
	}
	if perPipelineLimitMB == 0 {
		c.defaultPerPipeline = c.globalCapacity / 10
	} else {
		c.defaultPerPipeline = perPipelineLimitMB * 1024 * 1024
	}
	return c
}

// RegisterPipeline gives pipelineID its own usage counter and limitMB
// ceiling (0 uses the pool-wide default). A no-op if already registered.
func (c *Caps) RegisterPipeline(pipelineID string, limitMB uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.perPipeline[pipelineID]; exists {
		return
	}

	limit := limitMB * 1024 * 1024
	if limitMB == 0 {
		limit = c.defaultPerPipeline
	}

	c.perPipeline[pipelineID] = limit
	usage := uint64(0)
	c.perPipelineUse[pipelineID] = &usage
}

// UnregisterPipeline drops pipelineID's accounting. Called from Free(); any
// usage it still held should have been released first.
func (c *Caps) UnregisterPipeline(pipelineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.perPipeline, pipelineID)
	delete(c.perPipelineUse, pipelineID)
}

// TryAllocate reserves size bytes against both the global and
// pipelineID's own budget, failing atomically if either would be
// exceeded.
func (c *Caps) TryAllocate(pipelineID string, size uint64) bool {
	if !c.CanAllocate(pipelineID, size) {
		return false
	}

	c.mu.RLock()
	usagePtr, limit := c.perPipelineUse[pipelineID], c.perPipeline[pipelineID]
	c.mu.RUnlock()

	if usagePtr != nil {
		if atomic.AddUint64(usagePtr, size) > limit {
			atomic.AddUint64(usagePtr, ^uint64(size-1))
			return false
		}
	}

	if atomic.AddUint64(&c.globalUsage, size) > c.globalCapacity {
		atomic.AddUint64(&c.globalUsage, ^uint64(size-1))
		if usagePtr != nil {
			atomic.AddUint64(usagePtr, ^uint64(size-1))
		}
		return false
	}

	return true
}

// Free releases size bytes previously reserved for pipelineID.
func (c *Caps) Free(pipelineID string, size uint64) {
	if size > atomic.LoadUint64(&c.globalUsage) {
		size = atomic.LoadUint64(&c.globalUsage)
	}
	atomic.AddUint64(&c.globalUsage, ^uint64(size-1))

	c.mu.RLock()
	usagePtr := c.perPipelineUse[pipelineID]
	c.mu.RUnlock()

	if usagePtr != nil {
		usage := atomic.LoadUint64(usagePtr)
		if size > usage {
			size = usage
		}
		atomic.AddUint64(usagePtr, ^uint64(size-1))
	}
}

func (c *Caps) GlobalUsage() uint64    { return atomic.LoadUint64(&c.globalUsage) }
func (c *Caps) GlobalCapacity() uint64 { return c.globalCapacity }

func (c *Caps) PipelineUsage(pipelineID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if usagePtr, exists := c.perPipelineUse[pipelineID]; exists {
		return atomic.LoadUint64(usagePtr)
	}
	return 0
}

func (c *Caps) PipelineLimit(pipelineID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit, exists := c.perPipeline[pipelineID]; exists {
		return limit
	}
	return c.defaultPerPipeline
}

// CanAllocate reports whether size bytes would fit within both budgets
// without reserving anything.
func (c *Caps) CanAllocate(pipelineID string, size uint64) bool {
	if atomic.LoadUint64(&c.globalUsage)+size > c.globalCapacity {
		return false
	}

	c.mu.RLock()
	usagePtr, limit := c.perPipelineUse[pipelineID], c.perPipeline[pipelineID]
	c.mu.RUnlock()

	if usagePtr != nil && atomic.LoadUint64(usagePtr)+size > limit {
		return false
	}

	return true
}
