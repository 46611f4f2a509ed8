// Package pkey canonicalizes partition key values and computes the hex
// Effective Partition Key (EPK) string used to locate the owning
// PartitionKeyRange.
package pkey

import (
	"encoding/binary"
	"math"
)

// Component is one scalar of a partition key. A hierarchical key is an
// ordered list of 1-3 Components; a non-hierarchical key is a single
// Component.
type Component struct {
	Kind ComponentKind
	Bool bool
	Num  float64
	Str  string
}

// ComponentKind tags a Component's dynamic type. Undefined and Null get
// distinct canonical encodings, and Bool is distinct from the numeric 0/1
// it might otherwise be confused with.
type ComponentKind int

const (
	KindUndefined ComponentKind = iota
	KindNull
	KindBool
	KindNumber
	KindString
)

func Undefined() Component       { return Component{Kind: KindUndefined} }
func Null() Component            { return Component{Kind: KindNull} }
func Bool(b bool) Component      { return Component{Kind: KindBool, Bool: b} }
func Number(n float64) Component { return Component{Kind: KindNumber, Num: n} }
func String(s string) Component  { return Component{Kind: KindString, Str: s} }

// canonicalBytes renders c as the fixed-shape byte encoding that feeds the
// EPK hash: a one-byte type tag (so Undefined/Null/Bool/Number/String never
// collide with each other) followed by the type's canonical payload.
func canonicalBytes(c Component) []byte {
	switch c.Kind {
	case KindUndefined:
		return []byte{0x00}
	case KindNull:
		return []byte{0x01}
	case KindBool:
		if c.Bool {
			return []byte{0x02, 0x01}
		}
		return []byte{0x02, 0x00}
	case KindNumber:
		buf := make([]byte, 9)
		buf[0] = 0x03
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(c.Num))
		return buf
	case KindString:
		buf := make([]byte, 1+len(c.Str))
		buf[0] = 0x04
		copy(buf[1:], c.Str)
		return buf
	default:
		return []byte{0xFF}
	}
}
