package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes work per user. Entries are reference counted and
// dropped when the last holder or waiter lets go of them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sem  chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refMutex)}
}

// Lock waits until key is free or ctx is done and returns the matching
// unlock func. A free key is taken even when ctx is already done.
func (k *keyedMutex) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{sem: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.sem <- struct{}{}:
	default:
		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			k.release(key, m)
			return nil, ctx.Err()
		}
	}

	return func() {
		<-m.sem
		k.release(key, m)
	}, nil
}

func (k *keyedMutex) release(key uuid.UUID, m *refMutex) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
