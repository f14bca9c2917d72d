package session

import (
	"sync"

	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
)

// InitialCapacity is the first allocation, the cache doubles from there
const InitialCapacity = 64

// Entry is one cached key/value pair at a token position
type Entry struct {
	Key   []byte
	Value []byte
}

func (e Entry) size() int64 {
	return int64(len(e.Key) + len(e.Value))
}

// Context is a per-conversation key/value cache. Entries are appended at the
// cursor and never removed individually, only by Destroy. Safe for concurrent
// use.
type Context struct {
	reserve func(n int64) error
	release func(n int64)

	id      string
	entries []Entry
	bytes   int64
	cursor  int
	closed  bool
	mu      sync.RWMutex
}

var _ ports.SessionCache = (*Context)(nil)

// New returns an empty context with cursor 0 and no storage allocated
func New(id string) *Context {
	return &Context{id: id}
}

func (c *Context) ID() string {
	return c.id
}

// Store appends key/value at the cursor and advances it. The cache takes
// ownership of both slices, callers must not modify them afterwards.
func (c *Context) Store(key, value []byte) error {
	if key == nil || value == nil {
		return &domain.SessionError{Op: "store", SessionID: c.id, Err: domain.ErrInvalidEntry}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &domain.SessionError{Op: "store", SessionID: c.id, Err: domain.ErrSessionClosed}
	}

	entry := Entry{Key: key, Value: value}
	if c.reserve != nil {
		if err := c.reserve(entry.size()); err != nil {
			return &domain.SessionError{Op: "store", SessionID: c.id, Err: err}
		}
	}

	if c.cursor >= len(c.entries) {
		c.grow()
	}

	c.entries[c.cursor] = entry
	c.bytes += entry.size()
	c.cursor++
	return nil
}

func (c *Context) grow() {
	size := InitialCapacity
	if len(c.entries) > 0 {
		size = len(c.entries) * 2
	}
	grown := make([]Entry, size)
	copy(grown, c.entries[:c.cursor])
	c.entries = grown
}

// Get returns the value stored at position, if position is below the cursor
func (c *Context) Get(position int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if position < 0 || position >= c.cursor {
		return nil, false
	}
	return c.entries[position].Value, true
}

// Entry returns both halves of the pair at position
func (c *Context) Entry(position int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if position < 0 || position >= c.cursor {
		return Entry{}, false
	}
	return c.entries[position], true
}

func (c *Context) Cursor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

func (c *Context) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Bytes is the total size of stored keys and values
func (c *Context) Bytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytes
}

// Stats returns entry count and capacity for logging
func (c *Context) Stats() (entries, capacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor, len(c.entries)
}

// Destroy drops every entry and marks the context closed. Calling it on a
// nil or already destroyed context does nothing.
func (c *Context) Destroy() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.release != nil && c.bytes > 0 {
		c.release(c.bytes)
	}
	c.entries = nil
	c.cursor = 0
	c.bytes = 0
	c.closed = true
}

func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// snapshot copies the live entries, the slices themselves are shared
func (c *Context) snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, c.cursor)
	copy(entries, c.entries[:c.cursor])
	return Snapshot{ID: c.id, Entries: entries}
}
