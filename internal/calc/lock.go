package calc

import (
	"context"
	"sync"
)

// Locker grants exclusive use of a key without waiting. ok is false when the
// key is already held; release must be called once the work is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// KeyedMutex is an in-process Locker, used when no Redis is configured.
type KeyedMutex struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{held: make(map[string]bool)}
}

// Acquire implements Locker.
func (k *KeyedMutex) Acquire(_ context.Context, key string) (func(), bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.held[key] {
		return nil, false, nil
	}
	k.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.held, key)
			k.mu.Unlock()
		})
	}, true, nil
}

// lockKey is the per-series lock name "{family}:{code}".
func lockKey(family, code string) string {
	return family + ":" + code
}
