// Package plan is the typed representation of the gateway's
// PartitionedQueryExecutionInfo: rewritten query, order-by clauses,
// group-by keys, aggregates, distinct type, offset/limit, top, and
// read-many specialization. The engine only interprets this plan; it
// never produces one.
package plan

import (
	"encoding/json"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

// SortOrder is one orderBy direction.
type SortOrder string

const (
	Ascending  SortOrder = "Ascending"
	Descending SortOrder = "Descending"
)

// AggregateFunc names one of the gateway's supported aggregates.
type AggregateFunc string

const (
	AggregateAverage  AggregateFunc = "Average"
	AggregateCount    AggregateFunc = "Count"
	AggregateMax      AggregateFunc = "Max"
	AggregateMin      AggregateFunc = "Min"
	AggregateSum      AggregateFunc = "Sum"
	AggregateMakeSet  AggregateFunc = "MakeSet"
	AggregateMakeList AggregateFunc = "MakeList"
)

// DistinctType names the distinct mode, if any, the plan requires.
type DistinctType string

const (
	DistinctNone      DistinctType = "None"
	DistinctOrdered   DistinctType = "Ordered"
	DistinctUnordered DistinctType = "Unordered"
)

// QueryInfo is the plan's queryInfo object.
type QueryInfo struct {
	RewrittenQuery      string          `json:"rewrittenQuery,omitempty"`
	OrderBy             []SortOrder     `json:"orderBy,omitempty"`
	OrderByExpressions  []string        `json:"orderByExpressions,omitempty"`
	GroupByExpressions  []string        `json:"groupByExpressions,omitempty"`
	GroupByAliases      []string        `json:"groupByAliases,omitempty"`
	Aggregates          []AggregateFunc `json:"aggregates,omitempty"`
	DistinctType        DistinctType    `json:"distinctType,omitempty"`
	Offset              *int            `json:"offset,omitempty"`
	Limit               *int            `json:"limit,omitempty"`
	Top                 *int            `json:"top,omitempty"`
	HasSelectValue      bool            `json:"hasSelectValue,omitempty"`
	DCountInfo          *DCountInfo     `json:"dCountInfo,omitempty"`
	RequiresHybridSearch bool           `json:"requiresHybridSearch,omitempty"`
}

// DCountInfo carries the alias the gateway expects a distinct-count
// projection to be reported under.
type DCountInfo struct {
	DCountAlias string `json:"dCountAlias"`
}

// QueryRange is a logical interval over the hex EPK space, used to narrow
// down which physical PartitionKeyRanges the plan actually touches.
type QueryRange struct {
	Min            string `json:"min"`
	Max            string `json:"max"`
	IsMinInclusive bool   `json:"isMinInclusive"`
	IsMaxInclusive bool   `json:"isMaxInclusive"`
}

// PartitionedQueryExecutionInfo is the gateway's top-level plan object.
// Unrecognized fields are preserved in Extra so a newer gateway's plan
// doesn't get silently truncated.
type PartitionedQueryExecutionInfo struct {
	Version     int          `json:"partitionedQueryExecutionInfoVersion"`
	QueryInfo   QueryInfo    `json:"queryInfo"`
	QueryRanges []QueryRange `json:"queryRanges"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Parse decodes raw gateway plan JSON into a PartitionedQueryExecutionInfo,
// validates the version, and preserves unrecognized top-level fields.
func Parse(raw []byte) (*PartitionedQueryExecutionInfo, error) {
	if len(raw) == 0 {
		return nil, errors.Wrap(errors.ArgumentNull, "plan_json was empty", errors.ErrNullArgument)
	}

	var info PartitionedQueryExecutionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(errors.DeserializationError, "failed to parse query plan", err)
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(raw, &extra); err == nil {
		for _, known := range []string{"partitionedQueryExecutionInfoVersion", "queryInfo", "queryRanges"} {
			delete(extra, known)
		}
		info.Extra = extra
	}

	if info.Version < 1 {
		return nil, errors.New(errors.UnsupportedQueryPlan, "partitionedQueryExecutionInfoVersion must be >= 1")
	}

	return &info, nil
}

// HasOrderBy reports whether the plan requires the Streaming OrderBy
// operator.
func (p *PartitionedQueryExecutionInfo) HasOrderBy() bool {
	return len(p.QueryInfo.OrderBy) > 0
}

// HasGroupBy reports whether the plan requires the GroupBy/Aggregate
// operator.
func (p *PartitionedQueryExecutionInfo) HasGroupBy() bool {
	return len(p.QueryInfo.GroupByExpressions) > 0 || len(p.QueryInfo.Aggregates) > 0
}

// HasDistinct reports whether the plan requires the Distinct operator.
func (p *PartitionedQueryExecutionInfo) HasDistinct() bool {
	return p.QueryInfo.DistinctType != "" && p.QueryInfo.DistinctType != DistinctNone
}

// HasOffsetLimit reports whether the plan requires OffsetLimit.
func (p *PartitionedQueryExecutionInfo) HasOffsetLimit() bool {
	return p.QueryInfo.Offset != nil || p.QueryInfo.Limit != nil
}

// HasTop reports whether the plan requires Top.
func (p *PartitionedQueryExecutionInfo) HasTop() bool {
	return p.QueryInfo.Top != nil
}

// GroupKeyIsOrderByPrefix reports whether groupByExpressions is a prefix
// of the orderBy clause, which lets GroupBy stream groups as the merged
// order advances rather than buffering until every input terminates.
func (p *PartitionedQueryExecutionInfo) GroupKeyIsOrderByPrefix() bool {
	if len(p.QueryInfo.GroupByExpressions) == 0 {
		return false
	}
	if len(p.QueryInfo.OrderByExpressions) < len(p.QueryInfo.GroupByExpressions) {
		return false
	}
	for i, g := range p.QueryInfo.GroupByExpressions {
		if p.QueryInfo.OrderByExpressions[i] != g {
			return false
		}
	}
	return true
}

// EffectiveQuery returns the query to send per partition: the rewritten
// query if the gateway supplied one, otherwise the original query text
// unchanged.
func (p *PartitionedQueryExecutionInfo) EffectiveQuery(original string) string {
	if p.QueryInfo.RewrittenQuery != "" {
		return p.QueryInfo.RewrittenQuery
	}
	return original
}
