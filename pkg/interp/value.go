// Package interp executes parsed Javelin programs. The evaluator walks
// the tree statement by statement, driving the safety verifier, the
// deadline tracker, the heap engine, and the snapshot recorder as it
// goes.
package interp

import (
	"math"
	"strconv"
)

// Kind selects the active variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindDouble
	KindString
	KindBool
	KindVoid
)

var kindNames = [...]string{"null", "int", "double", "String", "boolean", "void"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a closed variant over the dialect's runtime types. Values
// are immutable: rebinding a name produces a new Value. ObjID, when
// nonzero, ties the value to a registered heap object so reachability
// follows the binding.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	ObjID uint64
}

// Constructors for each variant.
func IntVal(n int64) Value      { return Value{Kind: KindInt, Int: n} }
func DoubleVal(f float64) Value { return Value{Kind: KindDouble, Float: f} }
func StrVal(s string) Value     { return Value{Kind: KindString, Str: s} }
func BoolVal(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

// Null and Void are the two unit values.
var (
	Null = Value{Kind: KindNull}
	Void = Value{Kind: KindVoid}
)

// Size returns the nominal byte size used for heap accounting:
// int 4, double 8, String 2 per character, boolean 1, null and void 0.
func (v Value) Size() int64 {
	switch v.Kind {
	case KindInt:
		return 4
	case KindDouble:
		return 8
	case KindString:
		return 2 * int64(len(v.Str))
	case KindBool:
		return 1
	}
	return 0
}

// IsNumeric reports whether the value participates in arithmetic.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindDouble
}

// AsFloat widens the numeric value to float64.
func (v Value) AsFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// String renders the value the way the dialect's println does.
// Doubles always show a fractional part, matching the source
// language's output conventions.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDouble:
		f := v.Float
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatFloat(f, 'f', 1, 64)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNull:
		return "null"
	}
	return ""
}

// Equal compares two values the way the dialect's == does: numeric
// operands compare by promoted magnitude, everything else by kind and
// payload.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		return v.AsFloat() == o.AsFloat()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindNull, KindVoid:
		return true
	}
	return false
}
