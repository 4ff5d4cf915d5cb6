// Package lane provides keyed mutual exclusion: work sharing a key runs
// one at a time, work on different keys runs in parallel.
package lane

import (
	"context"
	"sync"
)

// Lock serializes holders of the same key. Per-key state is created on
// first use and dropped when nobody holds or waits on it, so the map only
// grows with the number of keys in flight.
//
// Acquire is cancellable: a caller stuck behind a slow holder gives up
// when its context ends instead of waiting forever.
type Lock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane is a one-slot semaphore. refs counts holders plus waiters.
type lane struct {
	sem  chan struct{}
	refs int
}

// New creates a ready-to-use Lock.
func New() *Lock {
	return &Lock{lanes: make(map[string]*lane)}
}

// Acquire blocks until the lane for key is free or ctx is done. On
// success the caller must call Release(key) exactly once.
func (l *Lock) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{sem: make(chan struct{}, 1)}
		l.lanes[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	select {
	case ln.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, ln)
		return ctx.Err()
	}
}

// Release frees the lane for key.
func (l *Lock) Release(key string) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-ln.sem
	l.unref(key, ln)
}

// Do runs fn while holding the lane for key.
func (l *Lock) Do(ctx context.Context, key string, fn func() error) error {
	if err := l.Acquire(ctx, key); err != nil {
		return err
	}
	defer l.Release(key)
	return fn()
}

// Len reports how many keys currently have holders or waiters.
func (l *Lock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func (l *Lock) unref(key string, ln *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln.refs--
	if ln.refs == 0 && l.lanes[key] == ln {
		delete(l.lanes, key)
	}
}
