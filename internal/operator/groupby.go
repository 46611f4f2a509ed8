package operator

import (
	"encoding/json"
	"fmt"

	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
	"github.com/cosmosquery/crosspartition/internal/plan"
)

// GroupBy wraps an upstream operator and accumulates one accumulator set
// per distinct groupByExpressions tuple.
//
// When streaming is true, the plan's groupByExpressions is a prefix of its
// orderBy, so groups arrive from upstream already clustered: GroupBy emits
// a finished group's row as soon as the merged stream advances past it.
// Otherwise it buffers every group until upstream signals Done, then
// emits them in first-seen order.
type GroupBy struct {
	upstream Operator

	aliases    []string
	aggregates []plan.AggregateFunc
	streaming  bool
	selectVal  bool

	// groupKeyOf extracts a group's key tuple from an item's groupByItems,
	// and aggregateInput extracts the value the i'th aggregate consumes
	// (the pipeline passes the item's i'th aggregateItems entry).
	groupKeyOf     func(ResultItem) []jsonvalue.Value
	aggregateInput func(ResultItem, int) jsonvalue.Value

	order []string // first-seen group digest order
	group map[string]*groupState

	// streaming-mode current group tracking
	hasCurrent  bool
	currentKey  string
	currentTup  []jsonvalue.Value

	upstreamDone bool
}

type groupState struct {
	keyTuple []jsonvalue.Value
	accs     []*jsonvalue.Accumulator
}

// NewGroupBy creates a GroupBy operator. groupKeyOf and aggregateInput let
// the pipeline supply document-shape-specific extraction without this
// package needing to know the wire envelope.
func NewGroupBy(upstream Operator, aliases []string, aggregates []plan.AggregateFunc, streaming, selectVal bool,
	groupKeyOf func(ResultItem) []jsonvalue.Value, aggregateInput func(ResultItem, int) jsonvalue.Value) *GroupBy {
	return &GroupBy{
		upstream:       upstream,
		aliases:        aliases,
		aggregates:     aggregates,
		streaming:      streaming,
		selectVal:      selectVal,
		groupKeyOf:     groupKeyOf,
		aggregateInput: aggregateInput,
		group:          make(map[string]*groupState),
	}
}

func (g *GroupBy) Pull(budget int) Pulled {
	if !g.upstreamDone {
		pulled := g.upstream.Pull(0) // GroupBy must see a whole group to close it; no point budgeting upstream.
		g.upstreamDone = pulled.Done

		var emitted []ResultItem
		for _, item := range pulled.Items {
			keyTuple := g.groupKeyOf(item)
			digest := digestTuple(keyTuple)

			if g.streaming && g.hasCurrent && digest != g.currentKey {
				row, err := g.render(g.group[g.currentKey])
				if err == nil {
					emitted = append(emitted, row)
				}
				delete(g.group, g.currentKey)
			}

			st, ok := g.group[digest]
			if !ok {
				st = &groupState{keyTuple: keyTuple, accs: g.newAccumulators()}
				g.group[digest] = st
				g.order = append(g.order, digest)
			}
			for i := range g.aggregates {
				st.accs[i].Add(g.aggregateInput(item, i))
			}

			if g.streaming {
				g.hasCurrent = true
				g.currentKey = digest
				g.currentTup = keyTuple
			}
		}

		if len(pulled.NeedsRequest) > 0 {
			return Pulled{Items: emitted, NeedsRequest: pulled.NeedsRequest}
		}

		if g.upstreamDone {
			if g.streaming && g.hasCurrent {
				if row, err := g.render(g.group[g.currentKey]); err == nil {
					emitted = append(emitted, row)
				}
				delete(g.group, g.currentKey)
				g.hasCurrent = false
			}
			if !g.streaming {
				// Buffered mode: everything is ready now, in first-seen order.
				for _, digest := range g.order {
					st := g.group[digest]
					if st == nil {
						continue
					}
					if row, err := g.render(st); err == nil {
						emitted = append(emitted, row)
					}
				}
				g.group = map[string]*groupState{}
				return Pulled{Items: emitted, Done: true}
			}
			return Pulled{Items: emitted, Done: true}
		}

		return Pulled{Items: emitted}
	}

	return Pulled{Done: true}
}

func (g *GroupBy) newAccumulators() []*jsonvalue.Accumulator {
	accs := make([]*jsonvalue.Accumulator, len(g.aggregates))
	for i, fn := range g.aggregates {
		accs[i] = jsonvalue.NewAccumulator(toAccumulatorKind(fn))
	}
	return accs
}

func toAccumulatorKind(fn plan.AggregateFunc) jsonvalue.AggregateKind {
	switch fn {
	case plan.AggregateCount:
		return jsonvalue.AggregateCount
	case plan.AggregateSum:
		return jsonvalue.AggregateSum
	case plan.AggregateMin:
		return jsonvalue.AggregateMin
	case plan.AggregateMax:
		return jsonvalue.AggregateMax
	case plan.AggregateAverage:
		return jsonvalue.AggregateAverage
	case plan.AggregateMakeSet:
		return jsonvalue.AggregateMakeSet
	case plan.AggregateMakeList:
		return jsonvalue.AggregateMakeList
	default:
		return jsonvalue.AggregateCount
	}
}

// render assembles the final row: {alias: value, ...} over groupByAliases,
// followed by each aggregate's result keyed "$1", "$2", ... in declared
// order (the plan carries no alias for an unaliased aggregate column), with
// hasSelectValue unwrapping the single projected field.
func (g *GroupBy) render(st *groupState) (ResultItem, error) {
	if st == nil {
		return ResultItem{}, errors.New(errors.InternalError, "render called on nil group state")
	}

	if g.selectVal && len(g.aggregates) == 1 && len(g.aliases) == 0 {
		payload, err := json.Marshal(toJSONAny(st.accs[0].Result()))
		if err != nil {
			return ResultItem{}, errors.Wrap(errors.InternalError, "failed to marshal select-value aggregate result", err)
		}
		return ResultItem{Payload: payload}, nil
	}

	row := make(map[string]interface{}, len(g.aliases)+len(g.aggregates))
	for i, alias := range g.aliases {
		if i < len(st.keyTuple) {
			row[alias] = toJSONAny(st.keyTuple[i])
		}
	}
	for i, acc := range st.accs {
		row[fmt.Sprintf("$%d", i+1)] = toJSONAny(acc.Result())
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return ResultItem{}, errors.Wrap(errors.InternalError, "failed to marshal group row", err)
	}
	return ResultItem{Payload: payload}, nil
}

func toJSONAny(v jsonvalue.Value) interface{} {
	switch v.Kind {
	case jsonvalue.KindUndefined, jsonvalue.KindNull:
		return nil
	case jsonvalue.KindBool:
		return v.Bool
	case jsonvalue.KindNumber:
		return v.Number
	case jsonvalue.KindString:
		return v.Str
	case jsonvalue.KindArray:
		arr := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			arr[i] = toJSONAny(e)
		}
		return arr
	case jsonvalue.KindObject:
		obj := make(map[string]interface{}, len(v.Object))
		for k, e := range v.Object {
			obj[k] = toJSONAny(e)
		}
		return obj
	default:
		return nil
	}
}

func digestTuple(tuple []jsonvalue.Value) string {
	return jsonvalue.CanonicalDigest(jsonvalue.Value{Kind: jsonvalue.KindArray, Array: tuple})
}
