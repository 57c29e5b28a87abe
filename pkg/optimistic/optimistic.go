// Package optimistic applies a local change before a remote commit and undoes it when
// the commit fails, so the observable state matches the store again.
package optimistic

import (
	"context"
	"sync"
)

// Value is a mutex-guarded piece of local state, such as a cached like count or an
// offer status shown to the user.
type Value[T any] struct {
	mu  sync.RWMutex
	val T
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{val: initial}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.val = val
	v.mu.Unlock()
}

// Update is a reversible change to a Value.
type Update[T any] struct {
	Apply  func(T) T
	Revert func(T) T
}

// Delta builds an Update that adds d and subtracts it on rollback.
func Delta(d int) Update[int] {
	return Update[int]{
		Apply:  func(n int) int { return n + d },
		Revert: func(n int) int { return n - d },
	}
}

// Replace builds an Update that swaps in next and restores the previous value on
// rollback.
func Replace[T any](next T) Update[T] {
	var prev T
	return Update[T]{
		Apply: func(cur T) T {
			prev = cur
			return next
		},
		Revert: func(T) T { return prev },
	}
}

// Do applies u to v, runs commit, and reverts u if commit fails. The commit error is
// returned unchanged.
func Do[T any](ctx context.Context, v *Value[T], u Update[T], commit func(context.Context) error) error {
	v.mu.Lock()
	v.val = u.Apply(v.val)
	v.mu.Unlock()

	if err := commit(ctx); err != nil {
		v.mu.Lock()
		v.val = u.Revert(v.val)
		v.mu.Unlock()
		return err
	}
	return nil
}
