package pool

// Pool is a typed sync.Pool. Values that implement Resettable are reset on
// the way back in, so Get always hands out something clean.
//
// The gateway pools its per connection contexts with it, each one carries a
// request and response buffer sized from the preset:
//
//	conns, _ := pool.NewLitePool(func() *connContext {
//		return newConnContext(4096, 8192)
//	})
//	cc := conns.Get()
//	defer conns.Put(cc)

import (
	"fmt"
	"sync"
)

type Resettable interface {
	Reset()
}

type Pool[T any] struct {
	pool sync.Pool
}

func NewLitePool[T any](newFn func() T) (*Pool[T], error) {
	if newFn == nil {
		return nil, fmt.Errorf("litepool: constructor must not be nil")
	}
	// catch a nil-returning constructor now rather than on first Get
	if any(newFn()) == nil {
		return nil, fmt.Errorf("litepool: constructor returned nil")
	}

	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return newFn()
			},
		},
	}, nil
}

func (p *Pool[T]) Get() T {
	//nolint:forcetypeassert // New only ever returns T
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.pool.Put(v)
}
