// Package rangeselect computes the minimal subset of a container's
// physical PartitionKeyRanges that the plan's logical queryRanges actually
// touch.
package rangeselect

import (
	"sort"

	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/plan"
)

// overlaps reports whether physical range r (always half-open,
// [MinInclusive, MaxExclusive)) intersects logical interval q, honoring
// q's own inclusive/exclusive boundary flags. Logical intervals are
// resolved against the physical half-open convention via those flags
// rather than by incrementing a hex string, which isn't well-defined in
// general.
//
// r's min is always inclusive and its max always exclusive, so the min
// side of the overlap test never needs q.IsMinInclusive: if r.MaxExclusive
// <= q.Min, r holds nothing q could reach regardless of whether q's own
// min is inclusive. The max side does need q.IsMaxInclusive, since a
// single-point touch at q.Max only counts as overlap when q includes it.
func overlaps(r plan.PartitionKeyRange, q plan.QueryRange) bool {
	if r.MaxExclusive <= q.Min {
		return false
	}
	if q.Max > r.MinInclusive {
		return true
	}
	return q.Max == r.MinInclusive && q.IsMaxInclusive
}

// Select returns the subset of ranges (sorted by MinInclusive) overlapping
// at least one of queryRanges, or all of ranges if queryRanges is empty
// (an empty queryRanges means the query spans the entire container).
func Select(ranges []plan.PartitionKeyRange, queryRanges []plan.QueryRange) ([]plan.PartitionKeyRange, error) {
	sorted := make([]plan.PartitionKeyRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinInclusive < sorted[j].MinInclusive })

	if err := checkNoOverlap(sorted); err != nil {
		return nil, err
	}

	if len(queryRanges) == 0 {
		return sorted, nil
	}

	var out []plan.PartitionKeyRange
	for _, r := range sorted {
		for _, q := range queryRanges {
			if overlaps(r, q) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// checkNoOverlap sweeps sorted physical ranges (already sorted by
// MinInclusive) and reports InvalidGatewayResponse if any two overlap.
func checkNoOverlap(sorted []plan.PartitionKeyRange) error {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinInclusive < sorted[i-1].MaxExclusive {
			return errors.New(errors.InvalidGatewayResponse, "physical partition key ranges overlap: "+
				sorted[i-1].ID+" and "+sorted[i].ID)
		}
	}
	return nil
}
