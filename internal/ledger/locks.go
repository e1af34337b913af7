package ledger

import "sync"

// accountLocks serializes trade application per account. Two concurrent
// buys or sells for the same user take the same mutex; different users
// proceed in parallel. Locks are never released from the map — the
// population is bounded by the number of accounts.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int]*sync.Mutex)}
}

func (l *accountLocks) get(userID int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}
