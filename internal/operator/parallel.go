package operator

import "github.com/cosmosquery/crosspartition/internal/buffer"

// Parallel is the always-present leaf operator: it round-robins across
// buffers in physical order, draining whatever is pending, bounded by the
// turn budget, and requests more data for any buffer that's run dry
// without having terminated.
type Parallel struct {
	rangeIDs []string
	buffers  map[string]*buffer.PartitionBuffer
	next     int // round-robin cursor, physical order
}

// NewParallel creates a Parallel leaf over buffers, visited in the order
// given by rangeIDs (physical lexicographic order).
func NewParallel(rangeIDs []string, buffers map[string]*buffer.PartitionBuffer) *Parallel {
	return &Parallel{rangeIDs: rangeIDs, buffers: buffers}
}

func (p *Parallel) Pull(budget int) Pulled {
	var items []ResultItem
	var needs []string

	if len(p.rangeIDs) == 0 {
		return Pulled{Done: true}
	}

	taken := 0
	for budget <= 0 || taken < budget {
		progressedThisPass := false

		for i := 0; i < len(p.rangeIDs) && (budget <= 0 || taken < budget); i++ {
			idx := (p.next + i) % len(p.rangeIDs)
			b := p.buffers[p.rangeIDs[idx]]
			if b == nil || b.Empty() {
				continue
			}
			got := b.Pop(1)
			for _, it := range got {
				items = append(items, ResultItem{Payload: it.Payload, OrderByItems: it.OrderByItems, GroupByItems: it.GroupByItems, AggregateItems: it.AggregateItems})
			}
			taken++
			progressedThisPass = true
		}

		if !progressedThisPass {
			break
		}
	}
	p.next = (p.next + 1) % len(p.rangeIDs)

	allDone := true
	for _, id := range p.rangeIDs {
		b := p.buffers[id]
		if b == nil {
			continue
		}
		if !b.HasOutstandingRequest() && b.Empty() && !b.Terminated() {
			needs = append(needs, id)
		}
		if !b.Terminated() || !b.Empty() {
			allDone = false
		}
	}

	return Pulled{Items: items, NeedsRequest: needs, Done: allDone}
}
