package conversation

import (
	"context"
	"sync"
)

// Locks serialises work per conversation id. Slots are reference counted and
// dropped once nobody holds or waits on them.
type Locks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{slots: make(map[string]*lockSlot)}
}

// Lock blocks until the key is free or ctx is done. The returned func releases it.
func (l *Locks) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(key, slot)
		})
	}, nil
}

func (l *Locks) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
