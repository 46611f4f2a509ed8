package operator

import "github.com/cosmosquery/crosspartition/internal/jsonvalue"

// DistinctMode selects which of the two Distinct strategies is active.
type DistinctMode int

const (
	DistinctOrdered DistinctMode = iota
	DistinctUnordered
)

// Distinct wraps an upstream operator and drops duplicate documents.
//
// Ordered mode assumes upstream is already sorted (orderBy matches the
// projected distinct expression) and only needs to remember the last
// emitted tuple: O(1) memory. Unordered mode has no such guarantee and
// must remember every digest it has ever seen: O(n) memory.
type Distinct struct {
	upstream Operator
	mode     DistinctMode

	keyOf func(ResultItem) jsonvalue.Value

	hasPrev  bool
	prevKey  jsonvalue.Value
	seen     map[string]struct{}
}

// NewDistinct wraps upstream with Distinct in mode, using keyOf to extract
// the value each item is deduplicated on (the pipeline passes one keyOf for
// both modes: the orderByItems tuple when the item carries one, otherwise the
// whole payload).
func NewDistinct(upstream Operator, mode DistinctMode, keyOf func(ResultItem) jsonvalue.Value) *Distinct {
	d := &Distinct{upstream: upstream, mode: mode, keyOf: keyOf}
	if mode == DistinctUnordered {
		d.seen = make(map[string]struct{})
	}
	return d
}

func (d *Distinct) Pull(budget int) Pulled {
	pulled := d.upstream.Pull(budget)

	var items []ResultItem
	for _, item := range pulled.Items {
		key := d.keyOf(item)

		switch d.mode {
		case DistinctOrdered:
			if d.hasPrev && jsonvalue.Compare(key, d.prevKey) == 0 {
				continue
			}
			d.prevKey = key
			d.hasPrev = true
			items = append(items, item)
		case DistinctUnordered:
			digest := jsonvalue.CanonicalDigest(key)
			if _, dup := d.seen[digest]; dup {
				continue
			}
			d.seen[digest] = struct{}{}
			items = append(items, item)
		}
	}

	return Pulled{Items: items, NeedsRequest: pulled.NeedsRequest, Done: pulled.Done}
}
