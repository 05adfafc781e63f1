// Package lock provides keyed mutual exclusion for single-process deployments.
// The Redis-backed pkg/redis.Locker satisfies the same Locker interface.
package lock

import (
	"context"
	"sync"
)

// Locker acquires a named lock, blocking until it is free or ctx is done
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// TryLocker acquires a named lock only if it is free right now
type TryLocker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*entry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}
	return l.releaser(key, e), nil
}

// TryLock acquires key without waiting. ok is false while another holder has it.
func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
		return l.releaser(key, e), true, nil
	default:
		l.unref(key, e)
		return nil, false, nil
	}
}

func (l *LocalLocker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) releaser(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}
}

func (l *LocalLocker) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// size is the number of live entries; used by tests
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
