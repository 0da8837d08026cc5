package feed

import (
	"context"
	"sync"
	"time"
)

// MemoryBus delivers events synchronously to in-process forwarders.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[int]func(Event)
	nextID   int
	closed   bool
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]func(Event))}
}

// Publish hands the event to every registered forwarder in the caller's goroutine.
func (b *MemoryBus) Publish(_ context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	handlers := make([]func(Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
	return nil
}

// StartForwarder registers onEvent until ctx is canceled.
func (b *MemoryBus) StartForwarder(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return ErrNoHandler
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = onEvent
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

// Close drops all forwarders.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(Event))
	return nil
}
