package operator

import (
	"container/heap"

	"github.com/cosmosquery/crosspartition/internal/buffer"
)

// OrderBy is the Streaming OrderBy leaf: a min-heap k-way merge over
// buffer heads, keyed by each item's orderByItems tuple. It replaces
// Parallel as the leaf whenever the plan's orderBy is non-empty.
type OrderBy struct {
	rangeIDs []string
	buffers  map[string]*buffer.PartitionBuffer
	desc     []bool // per-position descending flags
}

// NewOrderBy creates an OrderBy leaf over buffers in physical range order,
// with desc giving each orderBy position's direction.
func NewOrderBy(rangeIDs []string, buffers map[string]*buffer.PartitionBuffer, desc []bool) *OrderBy {
	return &OrderBy{rangeIDs: rangeIDs, buffers: buffers, desc: desc}
}

func (o *OrderBy) Pull(budget int) Pulled {
	// A buffer is eligible only if non-empty or terminated. If anything is
	// ineligible at the start of the turn, the merge cannot trust any
	// computed minimum, so nothing is emitted this turn.
	var anyIneligible bool
	var needsUpFront []string
	for _, id := range o.rangeIDs {
		b := o.buffers[id]
		if b == nil {
			continue
		}
		if !b.Eligible() {
			anyIneligible = true
			if !b.HasOutstandingRequest() {
				needsUpFront = append(needsUpFront, id)
			}
		}
	}
	if anyIneligible {
		return Pulled{NeedsRequest: needsUpFront}
	}

	h := &mergeHeap{desc: o.desc}
	for i, id := range o.rangeIDs {
		b := o.buffers[id]
		if b == nil {
			continue
		}
		if it, ok := b.Peek(); ok {
			heap.Push(h, mergeEntry{item: it, rangeIdx: i, rangeID: id})
		}
	}

	var items []ResultItem
	var needs []string

	for h.Len() > 0 && (budget <= 0 || len(items) < budget) {
		top := heap.Pop(h).(mergeEntry)
		b := o.buffers[top.rangeID]
		b.Pop(1)
		items = append(items, ResultItem{Payload: top.item.Payload, OrderByItems: top.item.OrderByItems, GroupByItems: top.item.GroupByItems, AggregateItems: top.item.AggregateItems})

		if it, ok := b.Peek(); ok {
			heap.Push(h, mergeEntry{item: it, rangeIdx: top.rangeIdx, rangeID: top.rangeID})
			continue
		}
		if !b.Terminated() {
			// This buffer just ran dry without terminating: the merge
			// can't trust any further minimum until it's refilled.
			needs = append(needs, top.rangeID)
			break
		}
	}

	allDone := true
	for _, id := range o.rangeIDs {
		b := o.buffers[id]
		if b == nil {
			continue
		}
		if !b.Terminated() || !b.Empty() {
			allDone = false
		}
	}

	return Pulled{Items: items, NeedsRequest: needs, Done: allDone && len(needs) == 0}
}

type mergeEntry struct {
	item     buffer.Item
	rangeIdx int
	rangeID  string
}

// mergeHeap implements container/heap over the current head item of each
// eligible buffer, ordered by the shared comparator with physical-range-
// order tie-breaking: stable by physical range order, then by arrival
// order within a partition — arrival order is free since each buffer's
// own FIFO is consumed in order.
type mergeHeap struct {
	desc  []bool
	items []mergeEntry
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if tupleLess(a.item.OrderByItems, b.item.OrderByItems, h.desc) {
		return true
	}
	if tupleLess(b.item.OrderByItems, a.item.OrderByItems, h.desc) {
		return false
	}
	return a.rangeIdx < b.rangeIdx
}
func (h *mergeHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x interface{}) { h.items = append(h.items, x.(mergeEntry)) }
func (h *mergeHeap) Pop() interface{} {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}
