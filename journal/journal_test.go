package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opcall/engine"
	"github.com/wippyai/opcall/invoke"
	"github.com/wippyai/opcall/runtime"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func record(op string, started time.Time) invoke.Record {
	return invoke.Record{
		ID:        uuid.Must(uuid.NewV7()),
		Operation: op,
		Started:   started,
		Duration:  3 * time.Millisecond,
		Inputs:    1,
		Shape:     invoke.ShapeSingle,
	}
}

func TestJournal_RecordRecent(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := record("invert", base)
	second := record("add", base.Add(time.Second))
	second.Options = "[size=2]"
	second.Named = 2
	second.Advisories = 1
	third := record("min", base.Add(2*time.Second))
	third.Error = "arity mismatch"

	for _, r := range []invoke.Record{first, second, third} {
		require.NoError(t, j.Record(ctx, r))
	}

	recent, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, third.ID, recent[0].ID)
	assert.True(t, recent[0].Failed())
	assert.Equal(t, "add", recent[1].Operation)
	assert.Equal(t, "[size=2]", recent[1].Options)
	assert.Equal(t, 2, recent[1].Named)
	assert.Equal(t, 1, recent[1].Advisories)
	assert.Equal(t, invoke.ShapeSingle, recent[1].Shape)
	assert.Equal(t, 3*time.Millisecond, recent[1].Duration)
	assert.True(t, second.Started.Equal(recent[1].Started))

	n, err := j.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = j.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournal_DuplicateID(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	r := record("invert", time.Now())
	require.NoError(t, j.Record(ctx, r))
	r.Operation = "other"
	require.NoError(t, j.Record(ctx, r))

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "invert", recent[0].Operation)
}

func TestJournal_AssignsID(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	require.NoError(t, j.Record(ctx, invoke.Record{Operation: "black", Started: time.Now()}))
	recent, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotEqual(t, uuid.Nil, recent[0].ID)
	assert.Equal(t, uuid.Version(7), recent[0].ID.Version())
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openTemp(t)
	recent, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestJournal_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, record("invert", time.Now())))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	n, err := j.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournal_Observer(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	rt := runtime.New(engine.Config{})
	defer rt.Close(ctx)
	rt.Subscribe(j)

	_, err := rt.Call(ctx, "black", 4, 4)
	require.NoError(t, err)
	_, err = rt.Call(ctx, "black", 4)
	require.Error(t, err)

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	var ok, failed int
	for _, r := range recent {
		assert.Equal(t, "black", r.Operation)
		if r.Failed() {
			failed++
		} else {
			ok++
			assert.Equal(t, invoke.ShapeSingle, r.Shape)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
}
