package kyc

import "sync"

// KeyedLocks hands out one mutex per key. Submission and document intake
// share one instance keyed by principal id, so concurrent writes cannot race
// the single-open-case invariant. Entries are retained for the process
// lifetime; growth is bounded by the active user population.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *KeyedLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
