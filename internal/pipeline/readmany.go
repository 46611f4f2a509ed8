package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/pkey"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

// ReadManyItem is one (id, partitionKey) pair a read-many call wants back.
type ReadManyItem struct {
	ID           string
	PartitionKey pkey.Key
}

// BuildReadManyRequests groups items by the physical range their partition
// key's EPK falls into, and synthesizes one or more point-read `IN (...)`
// queries per range, each respecting cfg.Limits.ReadManyBatchSize. startID
// is the last DataRequest.ID already assigned; requests get IDs startID+1,
// startID+2, ..., and nextID is the last ID assigned (startID when no
// request is built), which the caller stores as its new last-used ID.
func BuildReadManyRequests(items []ReadManyItem, ranges []plan.PartitionKeyRange, computer *pkey.Computer,
	version pkey.Version, cfg *config.Config, startID uint64) (requests []synthesizedRequest, nextID uint64, err error) {

	if cfg == nil {
		cfg = config.Default()
	}
	batchSize := cfg.Limits.ReadManyBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	sorted := make([]plan.PartitionKeyRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinInclusive < sorted[j].MinInclusive })

	byRange := make(map[string][]string) // range id -> quoted ids, insertion order per range
	order := make([]string, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))

	for _, item := range items {
		epk, err := computer.EPK(item.PartitionKey, version)
		if err != nil {
			return nil, startID, err
		}

		rangeID, ok := owningRange(sorted, epk)
		if !ok {
			return nil, startID, errors.New(errors.UnknownPartitionKeyRange,
				"no physical range owns the computed EPK for id "+item.ID)
		}

		if !seen[rangeID] {
			seen[rangeID] = true
			order = append(order, rangeID)
		}
		byRange[rangeID] = append(byRange[rangeID], strconv.Quote(item.ID))
	}

	id := startID
	for _, rangeID := range order {
		ids := byRange[rangeID]
		for start := 0; start < len(ids); start += batchSize {
			end := start + batchSize
			if end > len(ids) {
				end = len(ids)
			}
			id++
			requests = append(requests, synthesizedRequest{
				RequestID:           id,
				PartitionKeyRangeID: rangeID,
				Query:               "SELECT * FROM c WHERE c.id IN (" + strings.Join(ids[start:end], ",") + ")",
			})
		}
	}

	return requests, id, nil
}

// synthesizedRequest is a read-many DataRequest before the pipeline has
// assigned it a PartitionBuffer to track; the caller (Pipeline.ReadMany)
// turns these into request.DataRequest values and marks the owning
// buffers outstanding.
type synthesizedRequest struct {
	RequestID           uint64
	PartitionKeyRangeID string
	Query               string
}

// owningRange returns the id of the physical range (sorted by
// MinInclusive) whose half-open interval contains epk.
func owningRange(sorted []plan.PartitionKeyRange, epk string) (string, bool) {
	for _, r := range sorted {
		if r.Contains(epk) {
			return r.ID, true
		}
	}
	return "", false
}

// ReadMany synthesizes and issues the point-read DataRequests for a batch
// read-many call: items are grouped by owning physical range and chunked
// to cfg.Limits.ReadManyBatchSize, then each chunk's owning buffer is
// marked outstanding exactly as Run does for a normal scan, so the
// matching QueryResponses flow back through the ordinary ProvideData path.
func (p *Pipeline) ReadMany(items []ReadManyItem, version pkey.Version) ([]request.DataRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New(errors.InternalError, "read_many called on a freed pipeline")
	}

	synthesized, nextID, err := BuildReadManyRequests(items, p.ranges, p.pk, version, p.cfg, p.nextRequestID)
	if err != nil {
		return nil, err
	}
	p.nextRequestID = nextID

	issuedForRange := make(map[string]bool, len(p.buffers))
	reqs := make([]request.DataRequest, 0, len(synthesized))
	for _, s := range synthesized {
		b := p.buffers[s.PartitionKeyRangeID]
		if b == nil {
			continue
		}
		if issuedForRange[s.PartitionKeyRangeID] || b.HasOutstandingRequest() {
			p.pendingReadMany[s.PartitionKeyRangeID] = append(p.pendingReadMany[s.PartitionKeyRangeID], s)
			continue
		}
		issuedForRange[s.PartitionKeyRangeID] = true

		b.MarkOutstanding(s.RequestID)
		p.outstanding[s.RequestID] = s.PartitionKeyRangeID

		reqs = append(reqs, request.DataRequest{
			ID:                  s.RequestID,
			PartitionKeyRangeID: s.PartitionKeyRangeID,
			Query:               s.Query,
		})
	}
	p.met.AddRequestsIssued(uint64(len(reqs)))

	return reqs, nil
}
