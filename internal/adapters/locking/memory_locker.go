package locking

import (
	"context"
	"sync"
)

// MemoryLocker serializes work per owner inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]*ownerLock{}}
}

func (l *MemoryLocker) Lock(ctx context.Context, ownerID string) (func(), error) {
	l.mu.Lock()
	ol, ok := l.locks[ownerID]
	if !ok {
		ol = &ownerLock{ch: make(chan struct{}, 1)}
		l.locks[ownerID] = ol
	}
	ol.refs++
	l.mu.Unlock()

	select {
	case ol.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(ownerID, ol)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ol.ch
			l.release(ownerID, ol)
		})
	}, nil
}

func (l *MemoryLocker) release(ownerID string, ol *ownerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ol.refs--
	if ol.refs == 0 {
		delete(l.locks, ownerID)
	}
}
