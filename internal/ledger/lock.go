package ledger

import (
	"slices"
	"sync"
)

// keyedMutex hands out one mutex per transaction id. Entries are dropped
// once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock acquires the locks for keys in sorted order and returns the release
// function. Duplicate keys are locked once.
func (k *keyedMutex) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*refMutex, len(keys))
	for i, key := range keys {
		held[i] = k.acquire(key)
		held[i].Lock()
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			held[i].Unlock()
			k.release(keys[i])
		}
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *keyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m := k.locks[key]
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}
