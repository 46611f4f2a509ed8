package buffer

import (
	"encoding/json"

	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/jsonvalue"
)

// unorderedEnvelope is the gateway's wire shape for a plain (no orderBy,
// no groupBy) partition scan.
type unorderedEnvelope struct {
	Documents []json.RawMessage `json:"Documents"`
}

// orderedEnvelope is one row of a gateway response that carries orderBy
// and/or groupBy sort keys alongside the document payload.
type orderedEnvelope struct {
	Payload        json.RawMessage   `json:"payload"`
	OrderByItems   []json.RawMessage `json:"orderByItems,omitempty"`
	GroupByItems   []json.RawMessage `json:"groupByItems,omitempty"`
	AggregateItems []json.RawMessage `json:"aggregateItems,omitempty"`
}

// DecodeResponse parses a QueryResponse's Data field into Items. hasOrdered
// selects which of the two gateway wire shapes to expect: a bare
// {"Documents": [...]} array when the plan has neither orderBy nor
// groupBy, or a list of {payload, orderByItems, groupByItems,
// aggregateItems} envelopes otherwise.
func DecodeResponse(data []byte, hasOrdered bool) ([]Item, error) {
	if !hasOrdered {
		var env unorderedEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			code := errors.InvalidGatewayResponse
			if _, ok := err.(*json.SyntaxError); ok {
				code = errors.DeserializationError
			}
			return nil, errors.Wrap(code, "response is not a valid Documents envelope", err)
		}
		items := make([]Item, len(env.Documents))
		for i, doc := range env.Documents {
			items[i] = Item{Payload: []byte(doc)}
		}
		return items, nil
	}

	var rows []orderedEnvelope
	if err := json.Unmarshal(data, &rows); err != nil {
		code := errors.InvalidGatewayResponse
		if _, ok := err.(*json.SyntaxError); ok {
			code = errors.DeserializationError
		}
		return nil, errors.Wrap(code, "response is not a valid ordered-row envelope list", err)
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = Item{
			Payload:        []byte(row.Payload),
			OrderByItems:   decodeValues(row.OrderByItems),
			GroupByItems:   decodeValues(row.GroupByItems),
			AggregateItems: decodeValues(row.AggregateItems),
		}
	}
	return items, nil
}

// clauseItem is the gateway's wrapper around one orderByItems/groupByItems/
// aggregateItems element: {"item": <json>} in the common case, or
// {"item2": <json>} instead of "item" when the backend substitutes an
// alternate representation (e.g. a min/max result with no contributing
// document). A bare scalar is never sent on the wire; decodeValues unwraps
// this envelope rather than treating the element itself as the value.
type clauseItem struct {
	Item  json.RawMessage `json:"item"`
	Item2 json.RawMessage `json:"item2"`
}

func decodeValues(raw []json.RawMessage) []jsonvalue.Value {
	if len(raw) == 0 {
		return nil
	}
	out := make([]jsonvalue.Value, len(raw))
	for i, r := range raw {
		out[i] = decodeClauseItem(r)
	}
	return out
}

func decodeClauseItem(raw json.RawMessage) jsonvalue.Value {
	var wrapped clauseItem
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return jsonvalue.Undefined
	}
	if len(wrapped.Item) > 0 {
		return jsonvalue.FromRawMessage(wrapped.Item)
	}
	if len(wrapped.Item2) > 0 {
		return jsonvalue.FromRawMessage(wrapped.Item2)
	}
	return jsonvalue.Undefined
}
