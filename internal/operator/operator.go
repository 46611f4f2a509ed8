// Package operator implements the merge/aggregate operator tree composed
// from a query plan: Parallel Scan, Streaming OrderBy, GroupBy/Aggregate,
// Distinct, OffsetLimit, and Top. Every operator pulls from the one below
// it; the pipeline pulls from the root.
package operator

import "github.com/cosmosquery/crosspartition/internal/jsonvalue"

// ResultItem is one document flowing through the operator tree: the raw
// payload bytes the gateway attached, plus whatever orderByItems/
// groupByItems came with it. GroupBy needs the latter even after OrderBy
// has already consumed it for merge ordering, so every operator that
// passes an item through (Parallel, OrderBy, Distinct, OffsetLimit, Top)
// carries both slices along unmodified. Only GroupBy itself replaces
// Payload with a newly assembled projected document.
type ResultItem struct {
	Payload        []byte
	OrderByItems   []jsonvalue.Value
	GroupByItems   []jsonvalue.Value
	AggregateItems []jsonvalue.Value
}

// Pulled is what one operator's Pull returns: zero or more items ready to
// hand to the caller, the set of partition key ranges that need a new
// DataRequest before this operator can make further progress, and whether
// the operator has permanently finished (will never produce another item
// or request).
type Pulled struct {
	Items        []ResultItem
	NeedsRequest []string
	Done         bool
}

// Operator is one node of the tree. Pull drains up to budget items (0
// means unbounded); operators that merge from several buffers enforce
// fairness and ordering invariants internally, not budget itself.
type Operator interface {
	Pull(budget int) Pulled
}

// mergeNeedsRequest is the common pattern of several operators: collect
// NeedsRequest from an upstream Pulled plus any ranges this operator
// itself decided need a request, without duplicates.
func mergeNeedsRequest(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a))
	for _, r := range a {
		seen[r] = true
	}
	out := a
	for _, r := range b {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// tupleLess compares two orderByItems tuples using the shared comparator,
// applying per-position descending flags.
func tupleLess(a, b []jsonvalue.Value, desc []bool) bool {
	return jsonvalue.CompareTuple(a, b, desc) < 0
}
