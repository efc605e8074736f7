package repository

import "sync"

// keyedMutex hands out one mutex per user so appends for the same user are
// serialized while different users proceed independently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*sync.Mutex)}
}

func (k *keyedMutex) lock(userID uint) func() {
	k.mu.Lock()
	l, ok := k.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		k.locks[userID] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
