package interp

import "testing"

func TestValueString(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"int", IntVal(42), "42"},
		{"negative int", IntVal(-7), "-7"},
		{"integral double keeps decimal", DoubleVal(2), "2.0"},
		{"fractional double", DoubleVal(3.14), "3.14"},
		{"negative fraction", DoubleVal(-0.5), "-0.5"},
		{"string", StrVal("hi"), "hi"},
		{"bool", BoolVal(true), "true"},
		{"null", Null, "null"},
		{"void", Void, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValueSize(t *testing.T) {
	cases := []struct {
		v    Value
		want int64
	}{
		{IntVal(1), 4},
		{DoubleVal(1), 8},
		{StrVal("abc"), 6},
		{StrVal(""), 0},
		{BoolVal(false), 1},
		{Null, 0},
		{Void, 0},
	}
	for _, tc := range cases {
		if got := tc.v.Size(); got != tc.want {
			t.Errorf("Size(%s %v) = %d, want %d", tc.v.Kind, tc.v, got, tc.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int int", IntVal(2), IntVal(2), true},
		{"int double promoted", IntVal(2), DoubleVal(2), true},
		{"double int promoted", DoubleVal(0.5), IntVal(0), false},
		{"strings", StrVal("a"), StrVal("a"), true},
		{"string int", StrVal("1"), IntVal(1), false},
		{"bools", BoolVal(true), BoolVal(true), true},
		{"nulls", Null, Null, true},
		{"null void", Null, Void, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAsFloat(t *testing.T) {
	if got := IntVal(3).AsFloat(); got != 3.0 {
		t.Fatalf("AsFloat(int 3) = %v", got)
	}
	if got := DoubleVal(2.5).AsFloat(); got != 2.5 {
		t.Fatalf("AsFloat(2.5) = %v", got)
	}
}

func TestKindString(t *testing.T) {
	want := map[Kind]string{
		KindNull:   "null",
		KindInt:    "int",
		KindDouble: "double",
		KindString: "String",
		KindBool:   "boolean",
		KindVoid:   "void",
	}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), s)
		}
	}
}
