package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/logger"
)

var _ ports.SessionProvider = (*Manager)(nil)

// Snapshot is a session's entries at a point in time, used for persistence
type Snapshot struct {
	ID      string
	Entries []Entry
}

// Store persists session snapshots between runs
type Store interface {
	Save(ctx context.Context, snapshots []Snapshot) error
	Load(ctx context.Context) ([]Snapshot, error)
	Close() error
}

// Manager owns every live session context. A non-zero budget caps the bytes
// held across all sessions, stores past it fail with ErrCacheFull.
type Manager struct {
	sessions *xsync.Map[string, *Context]
	mem      ports.MemoryTracker
	logger   *logger.StyledLogger
	budget   int64
	used     atomic.Int64
}

func NewManager(budget int64, mem ports.MemoryTracker, log *logger.StyledLogger) *Manager {
	return &Manager{
		sessions: xsync.NewMap[string, *Context](),
		mem:      mem,
		logger:   log,
		budget:   budget,
	}
}

// Open returns the session for id, creating it on first use
func (m *Manager) Open(id string) (*Context, error) {
	if id == "" {
		return nil, &domain.SessionError{Op: "open", Err: fmt.Errorf("session id is empty")}
	}

	created := false
	sc, _ := m.sessions.LoadOrCompute(id, func() (*Context, bool) {
		created = true
		return m.newContext(id), false
	})
	if created {
		m.logger.InfoWithSession("Created session", id)
	}
	return sc, nil
}

// Acquire is Open for callers that only need the cache view
func (m *Manager) Acquire(id string) (ports.SessionCache, error) {
	sc, err := m.Open(id)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (m *Manager) newContext(id string) *Context {
	sc := New(id)
	sc.reserve = m.reserve
	sc.release = m.releaseBytes
	return sc
}

func (m *Manager) Lookup(id string) (*Context, bool) {
	return m.sessions.Load(id)
}

// Destroy removes and frees the session, false if it didn't exist
func (m *Manager) Destroy(id string) bool {
	sc, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	m.destroy(sc)
	return true
}

func (m *Manager) destroy(sc *Context) {
	entries, capacity := sc.Stats()
	bytes := sc.Bytes()
	sc.Destroy()
	m.logger.InfoWithSession("Freed session", sc.ID(),
		"entries", entries,
		"capacity", capacity,
		"bytes", bytes)
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Used is the bytes currently held across all sessions
func (m *Manager) Used() int64 {
	return m.used.Load()
}

// Close destroys every session
func (m *Manager) Close() {
	m.sessions.Range(func(id string, sc *Context) bool {
		m.sessions.Delete(id)
		m.destroy(sc)
		return true
	})
}

func (m *Manager) reserve(n int64) error {
	for {
		current := m.used.Load()
		next := current + n
		if m.budget > 0 && next > m.budget {
			return domain.ErrCacheFull
		}
		if m.used.CompareAndSwap(current, next) {
			break
		}
	}
	if m.mem != nil {
		m.mem.Alloc(n)
	}
	return nil
}

func (m *Manager) releaseBytes(n int64) {
	m.used.Add(-n)
	if m.mem != nil {
		m.mem.Free(n)
	}
}

// Snapshots copies every live session
func (m *Manager) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, m.sessions.Size())
	m.sessions.Range(func(_ string, sc *Context) bool {
		if snap := sc.snapshot(); len(snap.Entries) > 0 {
			out = append(out, snap)
		}
		return true
	})
	return out
}

// Persist writes all sessions to store
func (m *Manager) Persist(ctx context.Context, store Store) error {
	snapshots := m.Snapshots()
	if err := store.Save(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	m.logger.InfoWithCount("Persisted sessions", len(snapshots))
	return nil
}

// Restore loads sessions from store. Entries that no longer fit the budget
// stop the restore of that session but not the others.
func (m *Manager) Restore(ctx context.Context, store Store) error {
	snapshots, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}

	restored := 0
	for _, snap := range snapshots {
		sc, err := m.Open(snap.ID)
		if err != nil {
			m.logger.Warn("Skipping session", "session", snap.ID, "error", err)
			continue
		}
		for _, e := range snap.Entries {
			if err := sc.Store(e.Key, e.Value); err != nil {
				m.logger.Warn("Session only partially restored", "session", snap.ID, "error", err)
				break
			}
		}
		restored++
	}
	m.logger.InfoWithCount("Restored sessions", restored)
	return nil
}
