// Package mirror holds the local ordered copy of a remote collection. The
// owning store is the only writer; readers get copies.
package mirror

import "sync"

// Status is what consumers render while a store is busy or broken. LoadError
// and MutationError are independent: a failed add never clears a load error
// and a successful load never clears a mutation error.
type Status struct {
	Loading       bool   `json:"loading"`
	LoadError     string `json:"loadError,omitempty"`
	MutationError string `json:"mutationError,omitempty"`
}

type List[T any] struct {
	mu     sync.RWMutex
	items  []T
	status Status
}

// NewList returns an empty list that reports Loading until the first load
// finishes.
func NewList[T any]() *List[T] {
	return &List[T]{items: []T{}, status: Status{Loading: true}}
}

func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) Find(match func(T) bool) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Loaded records the result of a load. On success the contents are replaced
// wholesale; on failure the previous contents stay.
func (l *List[T]) Loaded(items []T, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Loading = false
	if err != nil {
		l.status.LoadError = err.Error()
		return
	}
	l.status.LoadError = ""
	l.items = append([]T(nil), items...)
}

func (l *List[T]) Append(v T) {
	l.mu.Lock()
	l.items = append(l.items, v)
	l.mu.Unlock()
}

func (l *List[T]) Prepend(v T) {
	l.mu.Lock()
	l.items = append([]T{v}, l.items...)
	l.mu.Unlock()
}

// Remove drops every entry that matches and returns how many were dropped.
func (l *List[T]) Remove(match func(T) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0:0]
	for _, it := range l.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	n := len(l.items) - len(kept)
	l.items = kept
	return n
}

// Update applies fn to the first matching entry in place, keeping its position.
func (l *List[T]) Update(match func(T) bool, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if match(l.items[i]) {
			fn(&l.items[i])
			return true
		}
	}
	return false
}

// Mutated records the outcome of an add, remove or update. A nil error clears
// the mutation channel.
func (l *List[T]) Mutated(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status.MutationError = err.Error()
		return
	}
	l.status.MutationError = ""
}

func (l *List[T]) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}
