package pool

// Pool is a typed wrapper over sync.Pool. It removes the interface{} casts
// at call sites and zeroes pooled values that implement Resettable before
// they are reused. The extractor uses it to recycle subprocess output
// buffers, which otherwise churn multi-megabyte allocations per probe.

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

// New builds a typed pool around the given constructor. The constructor is
// validated once up front so Get can assert types without a check.
func New[T any](newFn func() T) (*Pool[T], error) {
	if newFn == nil {
		return nil, fmt.Errorf("pool: constructor must not be nil")
	}
	if any(newFn()) == nil {
		return nil, fmt.Errorf("pool: constructor returned nil")
	}

	return &Pool[T]{
		pool: sync.Pool{
			New: func() any { return newFn() },
		},
	}, nil
}

func (p *Pool[T]) Get() T {
	//nolint:forcetypeassert // safe due to validated constructor
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.pool.Put(v)
}
