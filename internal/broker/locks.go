package broker

import "sync"

// accountLocks hands out one mutex per account. Every read-then-write of an
// account's balance or holdings, whether from the admission check or from a
// settlement, must run under that account's mutex so a settlement tick and a
// concurrent order placement cannot both spend the same balance.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uint]*sync.Mutex)}
}

// get returns the mutex for the given account, creating it on first use.
func (l *accountLocks) get(ownerID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[ownerID] = lock
	}
	return lock
}
