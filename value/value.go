package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/unit"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindEnum
	KindUnit
	KindDoubles
	KindInts
	KindUnits
	KindBlob
	KindList
)

var kindNames = [...]string{
	KindUnset:   "unset",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindString:  "string",
	KindEnum:    "enum",
	KindUnit:    "unit",
	KindDoubles: "doubles",
	KindInts:    "ints",
	KindUnits:   "units",
	KindBlob:    "blob",
	KindList:    "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a closed tagged union over everything that crosses the call
// boundary. The zero Value is unset.
//
// List is host-side only: it carries nested sequences and mixed arrays of
// units and constants into a call. The engine never returns one.
type Value struct {
	data any
	kind Kind
}

var Unset = Value{}

func Int(i int) Value            { return Value{kind: KindInt, data: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, data: f} }
func Bool(b bool) Value          { return Value{kind: KindBool, data: b} }
func String(s string) Value      { return Value{kind: KindString, data: s} }
func Enum(nick string) Value     { return Value{kind: KindEnum, data: nick} }
func Doubles(d []float64) Value  { return Value{kind: KindDoubles, data: d} }
func Ints(i []int) Value         { return Value{kind: KindInts, data: i} }
func Blob(b []byte) Value        { return Value{kind: KindBlob, data: b} }
func List(items ...Value) Value  { return Value{kind: KindList, data: items} }
func Units(u []*unit.Unit) Value { return Value{kind: KindUnits, data: u} }

// Unit wraps a processing unit. A nil unit gives Unset.
func Unit(u *unit.Unit) Value {
	if u == nil {
		return Unset
	}
	return Value{kind: KindUnit, data: u}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsUnset() bool { return v.kind == KindUnset }

func (v Value) AsInt() (int, bool) {
	i, ok := v.data.(int)
	return i, ok && v.kind == KindInt
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok && v.kind == KindBool
}

// AsFloat accepts floats and ints.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.data.(float64), true
	case KindInt:
		return float64(v.data.(int)), true
	}
	return 0, false
}

// AsString accepts strings and enum nicks.
func (v Value) AsString() (string, bool) {
	if v.kind == KindString || v.kind == KindEnum {
		return v.data.(string), true
	}
	return "", false
}

func (v Value) AsUnit() (*unit.Unit, bool) {
	u, ok := v.data.(*unit.Unit)
	return u, ok && v.kind == KindUnit
}

func (v Value) AsDoubles() ([]float64, bool) {
	d, ok := v.data.([]float64)
	return d, ok && v.kind == KindDoubles
}

func (v Value) AsInts() ([]int, bool) {
	i, ok := v.data.([]int)
	return i, ok && v.kind == KindInts
}

func (v Value) AsUnits() ([]*unit.Unit, bool) {
	u, ok := v.data.([]*unit.Unit)
	return u, ok && v.kind == KindUnits
}

func (v Value) AsBlob() ([]byte, bool) {
	b, ok := v.data.([]byte)
	return b, ok && v.kind == KindBlob
}

func (v Value) AsList() ([]Value, bool) {
	l, ok := v.data.([]Value)
	return l, ok && v.kind == KindList
}

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Numbers flattens a numeric array or a list of numbers. Scalars are not
// accepted here.
func (v Value) Numbers() ([]float64, bool) {
	switch v.kind {
	case KindDoubles:
		return v.data.([]float64), true
	case KindInts:
		ints := v.data.([]int)
		out := make([]float64, len(ints))
		for i, n := range ints {
			out[i] = float64(n)
		}
		return out, true
	case KindList:
		items := v.data.([]Value)
		out := make([]float64, len(items))
		for i, item := range items {
			f, ok := item.AsFloat()
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func (v Value) String() string {
	switch v.kind {
	case KindUnset:
		return "<unset>"
	case KindInt:
		return strconv.Itoa(v.data.(int))
	case KindFloat:
		return strconv.FormatFloat(v.data.(float64), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.data.(bool))
	case KindString:
		return strconv.Quote(v.data.(string))
	case KindEnum:
		return v.data.(string)
	case KindUnit:
		return v.data.(*unit.Unit).String()
	case KindDoubles:
		parts := make([]string, 0, len(v.data.([]float64)))
		for _, f := range v.data.([]float64) {
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 64))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindInts:
		parts := make([]string, 0, len(v.data.([]int)))
		for _, i := range v.data.([]int) {
			parts = append(parts, strconv.Itoa(i))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindUnits:
		parts := make([]string, 0, len(v.data.([]*unit.Unit)))
		for _, u := range v.data.([]*unit.Unit) {
			parts = append(parts, u.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindBlob:
		return fmt.Sprintf("<blob %d bytes>", len(v.data.([]byte)))
	case KindList:
		parts := make([]string, 0, len(v.data.([]Value)))
		for _, item := range v.data.([]Value) {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<unknown>"
}

// From converts a loosely typed Go value.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Unset, nil
	case Value:
		return t, nil
	case *unit.Unit:
		return Unit(t), nil
	case []*unit.Unit:
		return Units(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(int(t)), nil
	case int16:
		return Int(int(t)), nil
	case int32:
		return Int(int(t)), nil
	case int64:
		return Int(int(t)), nil
	case uint:
		return Int(int(t)), nil
	case uint8:
		return Int(int(t)), nil
	case uint16:
		return Int(int(t)), nil
	case uint32:
		return Int(int(t)), nil
	case uint64:
		return Int(int(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Blob(t), nil
	case []float64:
		return Doubles(t), nil
	case []int:
		return Ints(t), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := From(item)
			if err != nil {
				return Unset, err
			}
			items[i] = v
		}
		return List(items...), nil
	}
	return Unset, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
		HostType(fmt.Sprintf("%T", x)).
		Detail("unsupported host value").
		Value(x).
		Build()
}

// MustFrom is From for values known to convert.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}
