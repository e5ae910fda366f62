// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package record holds the per-row values produced by the extractors: typed
// property values, the ordered property list and the record itself.
package record

import (
	"strconv"
)

// Type tags a property value.
type Type int

const (
	Null Type = iota
	Bool
	Integer
	Float
	String
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a scalar property value. The zero Value is Null.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string
	raw string
}

func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{typ: Bool, b: b} }
func IntegerValue(i int64) Value { return Value{typ: Integer, i: i} }
func FloatValue(f float64) Value { return Value{typ: Float, f: f} }
func StringValue(s string) Value { return Value{typ: String, s: s} }
func (v Value) Type() Type { return v.typ }
func (v Value) IsNull() bool { return v.typ == Null }
func (v Value) BoolVal() bool { return v.b }
func (v Value) IntegerVal() int64 { return v.i }
func (v Value) FloatVal() float64 { return v.f }
func (v Value) StringVal() string { return v.s }

// WithRaw records the source token the value was parsed from. The token is
// used when the value is rendered as a string.
func (v Value) WithRaw(raw string) Value {
	v.raw = raw
	return v
}

// String renders the value as text. Null renders as the empty string.
func (v Value) String() string {
	if v.raw != "" {
		return v.raw
	}
	switch v.typ {
	case Bool:
		return strconv.FormatBool(v.b)
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	default:
		return ""
	}
}

// Equal compares type and payload, ignoring the raw token.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Bool:
		return v.b == o.b
	case Integer:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case String:
		return v.s == o.s
	default:
		return true
	}
}
