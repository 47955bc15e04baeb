package events

import (
	"sync"
)

type listener struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe registry for statement events.
// It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]listener
	nextID    uint64
	disposed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Type][]listener),
	}
}

// On registers h for events of type t and returns a function that removes
// it again. On a disposed bus the registration is dropped.
func (b *Bus) On(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed || h == nil {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.listeners[t] = append(b.listeners[t], listener{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[t]
	for i, l := range ls {
		if l.id == id {
			// Copy so a concurrent Emit iterating the old slice is unaffected.
			next := make([]listener, 0, len(ls)-1)
			next = append(next, ls[:i]...)
			b.listeners[t] = append(next, ls[i+1:]...)
			return
		}
	}
}

// Emit delivers e to every handler registered for e.Type, in registration
// order. Handlers are called outside the bus lock, so they may register or
// remove listeners. A panicking handler propagates to the caller.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	if b.disposed {
		b.mu.RUnlock()
		return
	}
	ls := b.listeners[e.Type]
	b.mu.RUnlock()

	for _, l := range ls {
		l.handler(e)
	}
}

// ListenerCount returns the number of handlers registered for t.
func (b *Bus) ListenerCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[t])
}

// RemoveAllListeners drops every handler. The bus stays usable.
func (b *Bus) RemoveAllListeners() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[Type][]listener)
}

// Isolated returns a fresh bus with no listeners and no link to b.
func (b *Bus) Isolated() *Bus {
	return NewBus()
}

// Dispose removes all listeners and makes the bus inert: later Emit and On
// calls do nothing. Dispose is idempotent.
func (b *Bus) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.listeners = make(map[Type][]listener)
}

// Disposed reports whether Dispose has been called.
func (b *Bus) Disposed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disposed
}
