package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/adapter/stats"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/logger"
)

func newTestManager(budget int64) (*Manager, *stats.MemProfile) {
	mem := stats.NewMemProfile()
	return NewManager(budget, mem, logger.NewDiscard()), mem
}

func TestManager_OpenReusesSession(t *testing.T) {
	m, _ := newTestManager(0)

	a, err := m.Open("chat-1")
	require.NoError(t, err)
	b, err := m.Open("chat-1")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Len())

	_, err = m.Open("")
	assert.Error(t, err)
}

func TestManager_LookupAndDestroy(t *testing.T) {
	m, mem := newTestManager(0)

	sc, err := m.Open("s")
	require.NoError(t, err)
	require.NoError(t, sc.Store([]byte("kk"), []byte("vvv")))
	assert.Equal(t, int64(5), m.Used())
	assert.Equal(t, int64(5), mem.Snapshot().CurrentUsage)

	found, ok := m.Lookup("s")
	require.True(t, ok)
	assert.Same(t, sc, found)

	assert.True(t, m.Destroy("s"))
	assert.False(t, m.Destroy("s"))
	assert.True(t, sc.Closed())
	assert.Zero(t, m.Used())
	assert.Zero(t, mem.Snapshot().CurrentUsage)
	assert.Equal(t, int64(5), mem.Snapshot().PeakUsage)

	_, ok = m.Lookup("s")
	assert.False(t, ok)
}

func TestManager_BudgetExhausted(t *testing.T) {
	m, _ := newTestManager(10)

	sc, err := m.Open("tight")
	require.NoError(t, err)

	require.NoError(t, sc.Store([]byte("1234"), []byte("5678")))
	err = sc.Store([]byte("ab"), []byte("cd"))
	assert.True(t, errors.Is(err, domain.ErrCacheFull))
	assert.Equal(t, 1, sc.Cursor())

	other, err := m.Open("other")
	require.NoError(t, err)
	require.NoError(t, other.Store([]byte("x"), []byte("y")), "exactly on budget is fine")
	assert.Equal(t, int64(10), m.Used())

	m.Destroy("tight")
	require.NoError(t, other.Store([]byte("ab"), []byte("cd")))
}

func TestManager_Close(t *testing.T) {
	m, _ := newTestManager(0)
	for _, id := range []string{"a", "b", "c"} {
		sc, err := m.Open(id)
		require.NoError(t, err)
		require.NoError(t, sc.Store([]byte("k"), []byte("v")))
	}

	m.Close()
	assert.Equal(t, 0, m.Len())
	assert.Zero(t, m.Used())
}

func TestManager_PersistRestore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	m, _ := newTestManager(0)

	sc, err := m.Open("alpha")
	require.NoError(t, err)
	require.NoError(t, sc.Store([]byte("k0"), []byte("hello")))
	require.NoError(t, sc.Store([]byte("k1"), []byte("world")))

	_, err = m.Open("empty")
	require.NoError(t, err)

	require.NoError(t, m.Persist(ctx, store))

	restored, _ := newTestManager(0)
	require.NoError(t, restored.Restore(ctx, store))

	assert.Equal(t, 1, restored.Len(), "empty sessions aren't persisted")
	got, ok := restored.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, 2, got.Cursor())

	v, ok := got.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("world"), v)
}

func TestManager_RestoreRespectsBudget(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, []Snapshot{
		{ID: "big", Entries: []Entry{{Key: []byte("aaaa"), Value: []byte("bbbb")}, {Key: []byte("cccc"), Value: []byte("dddd")}}},
	}))

	m, _ := newTestManager(10)
	require.NoError(t, m.Restore(ctx, store))

	sc, ok := m.Lookup("big")
	require.True(t, ok)
	assert.Equal(t, 1, sc.Cursor())
}
