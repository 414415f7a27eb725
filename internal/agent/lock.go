package agent

import (
	"context"
	"errors"
	"sync"
)

// ErrLockWait means lock acquisition outlived the turn context.
var ErrLockWait = errors.New("timed out waiting for resume lock")

// Lock serializes resume mutations within one live session. Every tool
// classified as mutating acquires it before touching the resume store,
// so two overlapping edits can never read-modify-write the same document
// copy. Acquisition is bounded by the caller's context rather than
// blocking forever.
type Lock struct {
	ch chan struct{}
}

func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrLockWait
	}
}

func (l *Lock) Release() {
	select {
	case <-l.ch:
	default:
	}
}

// LockTable hands out one Lock per user, so mutations stay serialized
// even when the same account holds several live connections.
type LockTable struct {
	mu    sync.Mutex
	locks map[uint64]*Lock
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[uint64]*Lock)}
}

func (t *LockTable) ForUser(userID uint64) *Lock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[userID]
	if !ok {
		l = NewLock()
		t.locks[userID] = l
	}
	return l
}
