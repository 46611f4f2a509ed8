// Package jsonvalue is the in-memory value model shared by every operator
// that needs to compare, hash, or do arithmetic on a JSON value pulled out
// of a document's orderByItems, groupByItems, or a projected field. It is
// the one place the type-rank comparator lives, so OrderBy, GroupBy's
// Min/Max accumulators, and Distinct's Ordered mode all agree on ordering.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind is a JSON value's dynamic type, ordered the way the comparator
// ranks it: Undefined < Null < Bool < Number < String < Array < Object.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a parsed JSON scalar, array, or object, tagged with its Kind so
// the comparator never has to re-derive it from a Go interface{} type
// switch mid-comparison.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Object map[string]Value
}

// Undefined is the value of a missing field or a field whose extraction
// failed; it sorts lowest of every kind per the comparator.
var Undefined = Value{Kind: KindUndefined}

// Null is the JSON null value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }

// FromAny converts a value produced by encoding/json's default unmarshal
// (map[string]interface{}, []interface{}, float64, string, bool, nil) into
// a Value. Any other dynamic type (shouldn't occur from json.Unmarshal)
// becomes Undefined.
func FromAny(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Undefined
		}
		return Number(f)
	case string:
		return String(x)
	case []interface{}:
		arr := make([]Value, len(x))
		for i, elem := range x {
			arr[i] = FromAny(elem)
		}
		return Value{Kind: KindArray, Array: arr}
	case map[string]interface{}:
		obj := make(map[string]Value, len(x))
		for k, elem := range x {
			obj[k] = FromAny(elem)
		}
		return Value{Kind: KindObject, Object: obj}
	default:
		return Undefined
	}
}

// FromRawMessage unmarshals raw (a field straight from a document payload)
// into a Value, falling back to Undefined on a parse error so callers
// don't have to special-case absent/malformed orderByItems themselves.
func FromRawMessage(raw json.RawMessage) Value {
	if len(raw) == 0 {
		return Undefined
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Undefined
	}
	return FromAny(v)
}

// Compare implements the type-rank ordering comparator: type rank first,
// then within-kind comparison. Returns -1, 0, or 1.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}

	switch a.Kind {
	case KindUndefined, KindNull:
		return 0
	case KindBool:
		return compareBool(a.Bool, b.Bool)
	case KindNumber:
		return compareNumber(a.Number, b.Number)
	case KindString:
		return compareString(a.Str, b.Str)
	case KindArray:
		return compareArray(a.Array, b.Array)
	case KindObject:
		return compareString(CanonicalDigest(a), CanonicalDigest(b))
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a { // false < true
		return -1
	}
	return 1
}

// compareNumber implements IEEE-754 total order with NaN sorting above
// every other number (plain `<` leaves NaN comparisons always false, which
// would make NaN neither greater nor less than anything and break heap
// invariants).
func compareNumber(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	if aNaN && bNaN {
		return 0
	}
	if aNaN {
		return 1
	}
	if bNaN {
		return -1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareString(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareArray(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareNumber(float64(len(a)), float64(len(b)))
}

// Less reports whether a sorts before b, inverted when descending is true.
func Less(a, b Value, descending bool) bool {
	c := Compare(a, b)
	if descending {
		c = -c
	}
	return c < 0
}

// CompareTuple compares two orderByItems tuples position by position,
// applying desc[i] (or the last entry if desc is shorter than the tuples,
// matching a single shared sort direction) at each position.
func CompareTuple(a, b []Value, desc []bool) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c := Compare(a[i], b[i])
		if descAt(desc, i) {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return compareNumber(float64(len(a)), float64(len(b)))
}

func descAt(desc []bool, i int) bool {
	if len(desc) == 0 {
		return false
	}
	if i < len(desc) {
		return desc[i]
	}
	return desc[len(desc)-1]
}

// AsFloat64 coerces v to a number for aggregate arithmetic (Sum/Average).
// ok is false for anything that isn't KindNumber, signaling the aggregate
// must become Undefined.
func AsFloat64(v Value) (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Number, true
}

// CanonicalDigest renders v as a canonical string usable both as a
// deterministic Distinct(Unordered) hash key and as the MakeSet insertion
// key: object keys are sorted so {"a":1,"b":2} and {"b":2,"a":1} collide.
func CanonicalDigest(v Value) string {
	var b []byte
	b = appendCanonical(b, v)
	return string(b)
}

func appendCanonical(b []byte, v Value) []byte {
	switch v.Kind {
	case KindUndefined:
		return append(b, "U"...)
	case KindNull:
		return append(b, "N"...)
	case KindBool:
		if v.Bool {
			return append(b, "Bt"...)
		}
		return append(b, "Bf"...)
	case KindNumber:
		b = append(b, 'n')
		return strconv.AppendFloat(b, v.Number, 'g', -1, 64)
	case KindString:
		b = append(b, 's')
		return strconv.AppendQuote(b, v.Str)
	case KindArray:
		b = append(b, '[')
		for i, elem := range v.Array {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendCanonical(b, elem)
		}
		return append(b, ']')
	case KindObject:
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b = append(b, '{')
		for i, k := range keys {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendQuote(b, k)
			b = append(b, ':')
			b = appendCanonical(b, v.Object[k])
		}
		return append(b, '}')
	default:
		return b
	}
}

// String renders v for debugging.
func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindArray, KindObject:
		return CanonicalDigest(v)
	default:
		return ""
	}
}
