package ports

// SessionCache is the view of a session's key/value cache handed to backends
type SessionCache interface {
	ID() string
	Store(key, value []byte) error
	Get(position int) ([]byte, bool)
	Cursor() int
}

// SessionProvider hands out session caches by id, creating them on first use
type SessionProvider interface {
	Acquire(id string) (SessionCache, error)
}
