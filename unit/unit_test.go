package unit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/resource"
)

type memImage struct {
	data       []float64
	w, h, band int
}

func (m *memImage) Width() int  { return m.w }
func (m *memImage) Height() int { return m.h }
func (m *memImage) Bands() int  { return m.band }

type memEngine struct {
	opcall.Engine
}

func (memEngine) ImageFromMemory(data []float64, w, h, bands int) (opcall.Image, error) {
	return &memImage{data: data, w: w, h: h, band: bands}, nil
}

func TestRefs(t *testing.T) {
	r := NewRefs(3, 1)
	assert.True(t, r.Add(2))
	assert.False(t, r.Add(2))
	assert.Equal(t, []resource.Handle{1, 2, 3}, r.Sorted())

	o := NewRefs(4)
	o.Union(r)
	assert.True(t, o.Contains(r))
	assert.False(t, r.Contains(o))
	assert.True(t, r.Equal(r.Clone()))
	assert.False(t, r.Equal(o))
}

func TestFromMemory_PinsBuffer(t *testing.T) {
	arena := resource.NewArena()
	data := []float64{1, 2, 3, 4}

	u, err := FromMemory(memEngine{}, arena, data, 2, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Width())
	assert.Equal(t, 1, u.Bands())

	refs := u.References()
	require.Equal(t, 1, refs.Len())
	h := refs.Sorted()[0]
	assert.True(t, arena.Live(h))

	require.NoError(t, u.Close())
	assert.False(t, arena.Live(h))
	assert.True(t, math.IsNaN(data[0]), "released memory is poisoned")
	assert.True(t, u.Closed())
	require.NoError(t, u.Close(), "second close is a no-op")
}

func TestAdopt_UnionsAndRetains(t *testing.T) {
	arena := resource.NewArena()
	a, err := FromMemory(memEngine{}, arena, []float64{1}, 1, 1, 1)
	require.NoError(t, err)
	b, err := FromMemory(memEngine{}, arena, []float64{2}, 1, 1, 1)
	require.NoError(t, err)

	c := New(&memImage{w: 1, h: 1, band: 1}, arena)
	c.Adopt(a.References())
	c.Adopt(b.References())
	c.Adopt(a.References())

	want := a.References()
	want.Union(b.References())
	assert.True(t, c.References().Equal(want))

	for h := range want {
		refs, _ := arena.Refs(h)
		assert.Equal(t, 2, refs, "one reference from the owner, one from c")
	}

	a.Close()
	b.Close()
	for h := range want {
		assert.True(t, arena.Live(h), "c keeps inputs' buffers alive")
	}

	c.Close()
	for h := range want {
		assert.False(t, arena.Live(h))
	}
}

func TestAdopt_NeverReplaces(t *testing.T) {
	arena := resource.NewArena()
	a, _ := FromMemory(memEngine{}, arena, []float64{1}, 1, 1, 1)
	own := a.References()

	a.Adopt(NewRefs())
	assert.True(t, a.References().Equal(own))
}

func TestAdopt_ClosedUnit(t *testing.T) {
	arena := resource.NewArena()
	a, _ := FromMemory(memEngine{}, arena, []float64{1}, 1, 1, 1)
	c := New(&memImage{w: 1, h: 1, band: 1}, arena)
	c.Close()

	c.Adopt(a.References())
	assert.Zero(t, c.References().Len())
}

func TestString(t *testing.T) {
	u := New(&memImage{w: 3, h: 2, band: 4}, nil)
	assert.Equal(t, "Image 3x2x4", u.String())
}
