// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package loader constructs a Map from a schema-free, JSON-shaped
// record and dumps a Map back to the same shape. Records are modeled
// as a small sum type rather than bound to Go structs, since the
// loader's job is exactly to validate a tree whose shape is not known
// ahead of time.
package loader

import (
	"math"

	"github.com/ceph/go-crush/crusherr"
)

type kind int

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindStr
	kindList
	kindMap
)

// Value is Null | Bool | Int | Float | Str | List[Value] | Map[string]Value.
type Value struct {
	kind kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value                       { return Value{kind: kindNull} }
func Bool(b bool) Value                 { return Value{kind: kindBool, b: b} }
func Int(i int64) Value                 { return Value{kind: kindInt, i: i} }
func Float(f float64) Value             { return Value{kind: kindFloat, f: f} }
func Str(s string) Value                { return Value{kind: kindStr, s: s} }
func List(items ...Value) Value         { return Value{kind: kindList, list: items} }
func Map(fields map[string]Value) Value { return Value{kind: kindMap, m: fields} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == kindNull }

// FromAny converts a tree produced by encoding/json's Unmarshal into
// interface{} (map[string]interface{}, []interface{}, float64, string,
// bool, nil) into a Value tree.
func FromAny(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Float(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case string:
		return Str(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return List(items...)
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = FromAny(e)
		}
		return Map(fields)
	default:
		return Null()
	}
}

// ToAny is FromAny's inverse, suitable for json.Marshal.
func (v Value) ToAny() interface{} {
	switch v.kind {
	case kindBool:
		return v.b
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	case kindStr:
		return v.s
	case kindList:
		out := make([]interface{}, len(v.list))
		for i, e := range v.list {
			out[i] = e.ToAny()
		}
		return out
	case kindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// Field looks up a map field without erroring on a type mismatch;
// callers that need an error for a missing/wrong-kind field use
// AsMap plus a direct map lookup, or MustField below.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != kindMap {
		return Value{}, false
	}
	f, ok := v.m[name]
	return f, ok
}

// MustField returns an InvalidInput error carrying name as a
// breadcrumb when the field is absent.
func (v Value) MustField(name string) (Value, error) {
	f, ok := v.Field(name)
	if !ok {
		return Value{}, crusherr.Wrapf(crusherr.InvalidInput, "missing field %q", name)
	}
	return f, nil
}

func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case kindInt:
		return v.i, nil
	case kindFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), nil
		}
	}
	return 0, crusherr.Wrap(crusherr.InvalidInput, "expected an integer")
}

func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case kindFloat:
		return v.f, nil
	case kindInt:
		return float64(v.i), nil
	}
	return 0, crusherr.Wrap(crusherr.InvalidInput, "expected a number")
}

func (v Value) AsString() (string, error) {
	if v.kind != kindStr {
		return "", crusherr.Wrap(crusherr.InvalidInput, "expected a string")
	}
	return v.s, nil
}

func (v Value) AsBool() (bool, error) {
	if v.kind != kindBool {
		return false, crusherr.Wrap(crusherr.InvalidInput, "expected a bool")
	}
	return v.b, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.kind != kindList {
		return nil, crusherr.Wrap(crusherr.InvalidInput, "expected a list")
	}
	return v.list, nil
}

func (v Value) AsMap() (map[string]Value, error) {
	if v.kind != kindMap {
		return nil, crusherr.Wrap(crusherr.InvalidInput, "expected a map")
	}
	return v.m, nil
}

// fixedScale is the 16.16 fixed-point scale applied to every weight
// field the loader and dumper cross.
const fixedScale = 1 << 16

func floatToFixed(f float64) uint32 {
	if f < 0 {
		f = 0
	}
	return uint32(math.Round(f * fixedScale))
}

func fixedToFloat(w uint32) float64 {
	return float64(w) / fixedScale
}
