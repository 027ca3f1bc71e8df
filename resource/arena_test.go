package resource

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

func TestArena_Lifecycle(t *testing.T) {
	arena := NewArena()
	obs := &testObserver{}
	arena.Subscribe(obs)

	buf := &Buffer{Data: []float64{1, 2, 3}}
	h := arena.Pin(buf)
	require.NotZero(t, h)
	assert.True(t, arena.Live(h))

	require.True(t, arena.Retain(h))
	refs, _ := arena.Refs(h)
	assert.Equal(t, 2, refs)

	require.True(t, arena.Release(h))
	assert.True(t, arena.Live(h))
	assert.Equal(t, []float64{1, 2, 3}, buf.Data, "buffer intact while referenced")

	require.True(t, arena.Release(h))
	assert.False(t, arena.Live(h))
	assert.Nil(t, buf.Data)

	assert.Equal(t, []EventType{EventPinned, EventRetained, EventReleased, EventDropped}, obs.types())
	assert.Equal(t, h, obs.events[3].Handle)
}

func TestArena_DropPoisonsAliases(t *testing.T) {
	arena := NewArena()
	data := []float64{10, 20}
	view := data[:]

	h := arena.Pin(&Buffer{Data: data})
	arena.Release(h)

	assert.True(t, math.IsNaN(view[0]))
	assert.True(t, math.IsNaN(view[1]))
}

func TestArena_Unsubscribe(t *testing.T) {
	arena := NewArena()
	obs := &testObserver{}
	arena.Subscribe(obs)
	arena.Unsubscribe(obs)

	arena.Pin("x")
	assert.Empty(t, obs.events)
}

func TestArena_Close(t *testing.T) {
	arena := NewArena()
	buf := &Buffer{Data: []float64{1}}
	arena.Pin(buf)
	require.Equal(t, 1, arena.Len())

	require.NoError(t, arena.Close())
	assert.Nil(t, buf.Data)
	assert.Zero(t, arena.Pin("late"), "closed arena refuses new buffers")
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "pinned", EventPinned.String())
	assert.Equal(t, "dropped", EventDropped.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
