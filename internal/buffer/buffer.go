// Package buffer implements the per-range PartitionBuffer: a FIFO of items
// arriving from one partition key range, its continuation token, terminal
// flag, and outstanding-request tracking.
package buffer

import (
	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
)

// Item is one document pulled from a range's response, carrying whatever
// orderByItems/groupByItems/payload-per-aggregate the gateway attached
// alongside the raw document payload. Operators that don't need them
// (Parallel Scan) simply ignore the zero-length slices. AggregateItems
// holds one partial-aggregate contribution per declared aggregate, in
// the plan's aggregate order, for group-by/aggregate queries.
type Item struct {
	Payload        []byte
	OrderByItems   []jsonvalue.Value
	GroupByItems   []jsonvalue.Value
	AggregateItems []jsonvalue.Value
}

// PartitionBuffer holds the per-range state of an in-flight scan. Accept
// enforces the delivery invariants directly rather than leaving them to
// callers: terminated becomes true exactly when an accepted continuation is
// empty, and a response is rejected unless it answers the one outstanding
// request. MarkOutstanding does not check for an already-outstanding
// request; its callers check HasOutstandingRequest first.
type PartitionBuffer struct {
	RangeID string

	pending []Item

	continuation string
	terminated   bool

	outstandingRequestID uint64
	hasOutstanding       bool
}

// New creates an empty, non-terminated buffer for rangeID.
func New(rangeID string) *PartitionBuffer {
	return &PartitionBuffer{RangeID: rangeID}
}

// Push appends items to the end of the pending FIFO, in the order they
// appeared in the response's Documents array.
func (b *PartitionBuffer) Push(items ...Item) {
	b.pending = append(b.pending, items...)
}

// Pop removes and returns the first n pending items (fewer if the FIFO
// holds fewer than n).
func (b *PartitionBuffer) Pop(n int) []Item {
	if n > len(b.pending) {
		n = len(b.pending)
	}
	out := b.pending[:n]
	b.pending = b.pending[n:]
	return out
}

// Peek returns the first pending item without removing it, and ok=false
// if the FIFO is empty. Used by Streaming OrderBy to compare buffer heads
// without consuming them until a merge decision is made.
func (b *PartitionBuffer) Peek() (Item, bool) {
	if len(b.pending) == 0 {
		return Item{}, false
	}
	return b.pending[0], true
}

// Len returns the number of pending items.
func (b *PartitionBuffer) Len() int { return len(b.pending) }

// Empty reports whether the pending FIFO holds no items.
func (b *PartitionBuffer) Empty() bool { return len(b.pending) == 0 }

// Terminated reports whether the range has been fully drained: the last
// accepted response carried an empty continuation.
func (b *PartitionBuffer) Terminated() bool { return b.terminated }

// Continuation returns the token from the last accepted response, or "" for
// a range that has not yet been fetched. A re-issued request for a
// non-terminated buffer must carry this token forward rather than restart
// the range from the beginning.
func (b *PartitionBuffer) Continuation() string { return b.continuation }

// Eligible reports whether the buffer may currently contribute to a merge
// decision: either it holds pending items, or it's terminated (so an empty
// FIFO means "no more data ever," not "data is still in flight").
func (b *PartitionBuffer) Eligible() bool {
	return !b.Empty() || b.Terminated()
}

// HasOutstandingRequest reports whether a DataRequest has been issued for
// this buffer and not yet answered.
func (b *PartitionBuffer) HasOutstandingRequest() bool { return b.hasOutstanding }

// MarkOutstanding records that requestID was issued for this buffer. It is
// an internal invariant violation to call this while a request is already
// outstanding; callers (Pipeline.Run and Pipeline.ReadMany, which check
// HasOutstandingRequest, and Pipeline.ProvideData, right after Accept has
// cleared the flag) make sure none is.
func (b *PartitionBuffer) MarkOutstanding(requestID uint64) {
	b.outstandingRequestID = requestID
	b.hasOutstanding = true
}

// Accept applies a QueryResponse's payload to the buffer: appends items,
// updates the continuation, and clears the outstanding-request flag. It
// validates that requestID matches the currently outstanding request and
// that a request was actually outstanding, enforcing continuation
// monotonicity.
func (b *PartitionBuffer) Accept(requestID uint64, continuation string, items []Item) error {
	if !b.hasOutstanding {
		return errors.Wrap(errors.InvalidGatewayResponse, "range "+b.RangeID+" has no outstanding request", errors.ErrDuplicateDelivery)
	}
	if requestID != b.outstandingRequestID {
		return errors.Wrap(errors.InvalidGatewayResponse, "request_id does not match the outstanding request for range "+b.RangeID, errors.ErrRequestIDMismatch)
	}

	b.pending = append(b.pending, items...)
	b.continuation = continuation
	b.terminated = continuation == ""
	b.hasOutstanding = false

	return nil
}
