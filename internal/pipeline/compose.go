package pipeline

import (
	"github.com/cosmosquery/crosspartition/internal/buffer"
	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
	"github.com/cosmosquery/crosspartition/internal/operator"
	"github.com/cosmosquery/crosspartition/internal/plan"
)

// checkSupported rejects a plan the engine cannot execute, before any
// DataRequest is raised for it. Every rejection here is UnsupportedQueryPlan
// so the caller never has to distinguish "malformed" from "unimplemented."
func checkSupported(info *plan.PartitionedQueryExecutionInfo, cfg *config.Config) error {
	if n := len(info.QueryInfo.OrderByExpressions); n > cfg.Limits.MaxOrderBySortKeys {
		return errors.Wrap(errors.UnsupportedQueryPlan,
			"orderBy has more sort keys than this engine supports", errors.ErrTooManySortKeys)
	}
	if info.QueryInfo.RequiresHybridSearch && !cfg.Feature.EnableHybrid {
		return errors.Wrap(errors.UnsupportedQueryPlan,
			"plan requires hybrid search, which is disabled", errors.ErrHybridDisabled)
	}
	return nil
}

// composeTree builds the operator tree bottom-up from the parsed plan:
// a leaf (Parallel or Streaming OrderBy) over rangeIDs/buffers, wrapped by
// GroupBy/Aggregate, then Distinct, then OffsetLimit or Top, in the order
// the gateway's plan composition always applies them. Distinct wrapping
// GroupBy means it dedups the emitted group rows, not the raw documents
// feeding into each group.
func composeTree(info *plan.PartitionedQueryExecutionInfo, rangeIDs []string, buffers map[string]*buffer.PartitionBuffer) operator.Operator {
	var root operator.Operator

	if info.HasOrderBy() {
		desc := make([]bool, len(info.QueryInfo.OrderBy))
		for i, dir := range info.QueryInfo.OrderBy {
			desc[i] = dir == plan.Descending
		}
		root = operator.NewOrderBy(rangeIDs, buffers, desc)
	} else {
		root = operator.NewParallel(rangeIDs, buffers)
	}

	if info.HasGroupBy() {
		streaming := info.GroupKeyIsOrderByPrefix()
		root = operator.NewGroupBy(root, info.QueryInfo.GroupByAliases, info.QueryInfo.Aggregates,
			streaming, info.QueryInfo.HasSelectValue, groupKeyOf, aggregateInputOf)
	}

	if info.HasDistinct() {
		mode := operator.DistinctOrdered
		if info.QueryInfo.DistinctType == plan.DistinctUnordered {
			mode = operator.DistinctUnordered
		}
		root = operator.NewDistinct(root, mode, distinctKeyOf)
	}

	if info.HasOffsetLimit() {
		offset := 0
		if info.QueryInfo.Offset != nil {
			offset = *info.QueryInfo.Offset
		}
		limit := 1<<31 - 1
		if info.QueryInfo.Limit != nil {
			limit = *info.QueryInfo.Limit
		}
		root = operator.NewOffsetLimit(root, offset, limit)
	}

	if info.HasTop() {
		root = operator.NewTop(root, *info.QueryInfo.Top)
	}

	return root
}

// distinctKeyOf extracts the value Distinct dedups on: the orderByItems
// tuple when the plan carries one (Distinct combined with ORDER BY, or a
// projected Distinct expression riding along as a single-element tuple),
// otherwise the whole document payload.
func distinctKeyOf(item operator.ResultItem) jsonvalue.Value {
	if len(item.OrderByItems) > 0 {
		return jsonvalue.Value{Kind: jsonvalue.KindArray, Array: item.OrderByItems}
	}
	return jsonvalue.FromRawMessage(item.Payload)
}

// groupKeyOf extracts GroupBy's key tuple from a gateway-supplied item.
func groupKeyOf(item operator.ResultItem) []jsonvalue.Value {
	return item.GroupByItems
}

// aggregateInputOf extracts the i'th declared aggregate's partial
// contribution for item, or Undefined if the gateway sent fewer values
// than the plan declares aggregates.
func aggregateInputOf(item operator.ResultItem, i int) jsonvalue.Value {
	if i < len(item.AggregateItems) {
		return item.AggregateItems[i]
	}
	return jsonvalue.Undefined
}
