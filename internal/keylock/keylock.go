// Package keylock provides one lock per key, so that writers to the same
// auction or show are serialized while unrelated keys proceed in parallel.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{} // holds one token while the key is locked
	refs int
}

// KeyLock hands out per-key locks. Entries are dropped once no goroutine
// holds or waits on them, so the map only grows with in-flight keys.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

// Lock blocks until the caller holds key or ctx is done. On success it
// returns the matching unlock; on cancellation it returns ctx.Err() and
// the caller holds nothing.
func (k *KeyLock) Lock(ctx context.Context, key string) (unlock func(), err error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.release(key, e)
		})
	}, nil
}

func (k *KeyLock) release(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
