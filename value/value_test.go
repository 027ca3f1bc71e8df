package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/unit"
)

type fakeImage struct{ w, h, b int }

func (f fakeImage) Width() int  { return f.w }
func (f fakeImage) Height() int { return f.h }
func (f fakeImage) Bands() int  { return f.b }

func newUnit(w, h, b int) *unit.Unit {
	return unit.New(fakeImage{w, h, b}, nil)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"int", Int(3), KindInt},
		{"float", Float(1.5), KindFloat},
		{"bool", Bool(true), KindBool},
		{"string", String("x"), KindString},
		{"enum", Enum("uchar"), KindEnum},
		{"doubles", Doubles([]float64{1}), KindDoubles},
		{"ints", Ints([]int{1}), KindInts},
		{"blob", Blob([]byte{1}), KindBlob},
		{"list", List(Int(1)), KindList},
		{"unit", Unit(newUnit(1, 1, 1)), KindUnit},
		{"units", Units([]*unit.Unit{newUnit(1, 1, 1)}), KindUnits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
			assert.False(t, tt.v.IsUnset())
		})
	}

	assert.True(t, Unit(nil).IsUnset())
	assert.True(t, Value{}.IsUnset())
}

func TestAccessors(t *testing.T) {
	f, ok := Int(4).AsFloat()
	require.True(t, ok)
	assert.Equal(t, 4.0, f)

	_, ok = Float(4).AsInt()
	assert.False(t, ok, "floats are not ints")

	s, ok := Enum("multiband").AsString()
	require.True(t, ok)
	assert.Equal(t, "multiband", s)

	_, ok = String("x").AsUnit()
	assert.False(t, ok)

	nums, ok := List(Int(1), Float(2.5)).Numbers()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2.5}, nums)

	_, ok = List(Int(1), String("x")).Numbers()
	assert.False(t, ok)

	_, ok = Int(1).Numbers()
	assert.False(t, ok, "scalars are not arrays")
}

func TestFrom(t *testing.T) {
	u := newUnit(2, 2, 1)

	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindUnset},
		{"int64", int64(7), KindInt},
		{"uint8", uint8(7), KindInt},
		{"float32", float32(1.5), KindFloat},
		{"bool", false, KindBool},
		{"string", "hi", KindString},
		{"bytes", []byte("hi"), KindBlob},
		{"doubles", []float64{1, 2}, KindDoubles},
		{"ints", []int{1, 2}, KindInts},
		{"unit", u, KindUnit},
		{"units", []*unit.Unit{u}, KindUnits},
		{"value", Enum("x"), KindEnum},
		{"mixed", []any{1, 2.0, u}, KindList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := From(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
		})
	}

	_, err := From(struct{}{})
	require.Error(t, err)
	assert.Equal(t, errors.KindTypeMismatch, errors.KindOf(err))

	_, err = From([]any{1, map[string]int{}})
	require.Error(t, err)

	assert.Panics(t, func() { MustFrom(make(chan int)) })
}

func TestString(t *testing.T) {
	assert.Equal(t, "<unset>", Unset.String())
	assert.Equal(t, "3", Int(3).String())
	assert.Equal(t, "0.5", Float(0.5).String())
	assert.Equal(t, `"a"`, String("a").String())
	assert.Equal(t, "uchar", Enum("uchar").String())
	assert.Equal(t, "[1 2.5]", Doubles([]float64{1, 2.5}).String())
	assert.Equal(t, "[1 2]", Ints([]int{1, 2}).String())
	assert.Equal(t, "<blob 3 bytes>", Blob([]byte("abc")).String())
	assert.Equal(t, "[1, [true]]", List(Int(1), List(Bool(true))).String())
	assert.Equal(t, "Image 2x3x1", Unit(newUnit(2, 3, 1)).String())
}

func TestWalk(t *testing.T) {
	a, b, c := newUnit(1, 1, 1), newUnit(2, 2, 1), newUnit(3, 3, 1)
	v := List(Int(1), Unit(a), List(Units([]*unit.Unit{b, nil, c})))

	var seen []*unit.Unit
	EachUnit(v, func(u *unit.Unit) { seen = append(seen, u) })
	assert.Equal(t, []*unit.Unit{a, b, c}, seen)

	found, ok := Find(v, func(x Value) bool { return x.Kind() == KindUnit })
	require.True(t, ok)
	got, _ := found.AsUnit()
	assert.Same(t, a, got)

	_, ok = Find(Int(1), func(x Value) bool { return x.Kind() == KindUnit })
	assert.False(t, ok)

	visits := 0
	complete := Walk(v, func(Value) bool {
		visits++
		return visits < 2
	})
	assert.False(t, complete)
	assert.Equal(t, 2, visits)
}
