// Package lazy holds process-wide handles that are expensive to create, such
// as database connections and embedding clients, and builds them on first use.
package lazy

import (
	"context"
	"sync"
)

// Value builds a T once on the first successful Get and shares it afterwards.
// A failed build is not cached, so the next Get tries again.
type Value[T any] struct {
	build func(context.Context) (T, error)

	mu    sync.Mutex
	done  bool
	value T
}

// New returns a Value that calls build on first use.
func New[T any](build func(context.Context) (T, error)) *Value[T] {
	return &Value[T]{build: build}
}

// Of returns a Value that is already initialized with v.
func Of[T any](v T) *Value[T] {
	return &Value[T]{done: true, value: v}
}

// Get returns the shared value, building it if needed. Concurrent callers
// block until the first build finishes and observe the same instance.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.done {
		return v.value, nil
	}

	value, err := v.build(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	v.value = value
	v.done = true
	return value, nil
}

// Peek returns the value and whether it has been built, without building it.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.done
}
