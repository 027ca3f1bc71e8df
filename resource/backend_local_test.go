package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create("test value")
	require.NoError(t, err)
	require.NotZero(t, handle)

	val, ok := b.Get(handle)
	require.True(t, ok)
	assert.Equal(t, "test value", val)

	refs, ok := b.Refs(handle)
	require.True(t, ok)
	assert.Equal(t, 1, refs)

	val, refs, dropped, ok := b.Release(handle)
	require.True(t, ok)
	assert.True(t, dropped)
	assert.Zero(t, refs)
	assert.Equal(t, "test value", val)

	_, ok = b.Get(handle)
	assert.False(t, ok, "Get should fail after the last release")
}

func TestLocalBackend_RefCounting(t *testing.T) {
	b := NewLocalBackend()
	handle, err := b.Create("buf")
	require.NoError(t, err)

	refs, ok := b.Retain(handle)
	require.True(t, ok)
	assert.Equal(t, 2, refs)

	_, refs, dropped, ok := b.Release(handle)
	require.True(t, ok)
	assert.False(t, dropped)
	assert.Equal(t, 1, refs)

	_, ok = b.Get(handle)
	assert.True(t, ok, "value survives while a reference remains")

	_, _, dropped, ok = b.Release(handle)
	require.True(t, ok)
	assert.True(t, dropped)

	_, _, _, ok = b.Release(handle)
	assert.False(t, ok, "releasing a dropped handle fails")
	_, ok = b.Retain(handle)
	assert.False(t, ok, "retaining a dropped handle fails")
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	_, ok := b.Get(0)
	assert.False(t, ok)
	_, ok = b.Get(999)
	assert.False(t, ok)
	_, ok = b.Retain(0)
	assert.False(t, ok)
	_, _, _, ok = b.Release(999)
	assert.False(t, ok)
	_, ok = b.Refs(0)
	assert.False(t, ok)
}

func TestLocalBackend_FreeListReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create("first")
	_, _ = b.Create("second")

	b.Release(h1)

	h3, err := b.Create("third")
	require.NoError(t, err)
	assert.Equal(t, h1, h3, "freed slot is reused")

	val, _ := b.Get(h3)
	assert.Equal(t, "third", val)
}

type dropCounter struct {
	dropped int
}

func (d *dropCounter) Drop() {
	d.dropped++
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	d1 := &dropCounter{}
	d2 := &dropCounter{}
	_, _ = b.Create(d1)
	h2, _ := b.Create(d2)
	b.Retain(h2)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, d1.dropped)
	assert.Equal(t, 1, d2.dropped, "close drops regardless of reference count")

	_, err := b.Create("late")
	assert.True(t, errors.Is(err, ErrClosed))

	require.NoError(t, b.Close(), "second close is a no-op")
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	handle, _ := b.Create("shared")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Retain(handle)
			b.Release(handle)
		}()
	}
	wg.Wait()

	refs, ok := b.Refs(handle)
	require.True(t, ok)
	assert.Equal(t, 1, refs)
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()
	b.Create("a")
	h, _ := b.Create("b")
	b.Create("c")
	b.Release(h)

	var seen []any
	b.Each(func(_ Handle, refs int, v any) bool {
		assert.Equal(t, 1, refs)
		seen = append(seen, v)
		return true
	})
	assert.Equal(t, []any{"a", "c"}, seen)
	assert.Equal(t, 2, b.Len())
}
