package assistant

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// callerLocks serializes turns per caller. Entries are dropped once no turn
// holds or waits on them.
type callerLocks struct {
	mu    sync.Mutex
	locks map[string]*callerLock
}

type callerLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newCallerLocks() *callerLocks {
	return &callerLocks{locks: make(map[string]*callerLock)}
}

// acquire blocks until caller has no other turn in flight or ctx is done.
func (l *callerLocks) acquire(ctx context.Context, caller string) error {
	l.mu.Lock()
	lock, ok := l.locks[caller]
	if !ok {
		lock = &callerLock{sem: semaphore.NewWeighted(1)}
		l.locks[caller] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.unref(caller, lock)
		return err
	}
	return nil
}

func (l *callerLocks) release(caller string) {
	l.mu.Lock()
	lock, ok := l.locks[caller]
	l.mu.Unlock()
	if !ok {
		return
	}
	lock.sem.Release(1)
	l.unref(caller, lock)
}

func (l *callerLocks) unref(caller string, lock *callerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, caller)
	}
}

func (l *callerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
