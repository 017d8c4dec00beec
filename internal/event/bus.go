// Package event provides the project-wide pub/sub event bus and the
// bounded replay buffer backing the global SSE stream.
package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Subscriber is a function that receives published envelopes.
type Subscriber func(env types.EventEnvelope)

// subscriberEntry wraps a subscriber with an ID for unsubscription.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is the event bus that manages pub/sub using watermill. It uses
// watermill's gochannel for infrastructure while keeping direct-call
// fan-out semantics, which preserve the DomainEvent's concrete type
// across the call (watermill's own payload is just the JSON bytes,
// used here for potential future middleware/routing).
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	global []subscriberEntry
	buffer *ReplayBuffer

	nextID       uint64
	closed       bool
	closedCancel context.CancelFunc
	closedCtx    context.Context
}

// New creates a new event bus with its own replay buffer.
func New() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		buffer:       NewReplayBuffer(DefaultEventBufferSize),
		closedCtx:    ctx,
		closedCancel: cancel,
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for every published envelope. Returns
// an unsubscribe function.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

// Publish wraps ev in an envelope, appends it to the replay buffer, and
// fans it out to every subscriber asynchronously.
func (b *Bus) Publish(ev types.DomainEvent) types.EventEnvelope {
	env := types.EventEnvelope{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Event:     ev,
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return env
	}
	subs := make([]Subscriber, 0, len(b.global))
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	b.mu.RUnlock()

	b.buffer.Append(env)

	for _, sub := range subs {
		go sub(env)
	}
	return env
}

// PublishSync is like Publish but calls every subscriber synchronously
// in the current goroutine before returning. Used by tests that need to
// observe side effects deterministically.
func (b *Bus) PublishSync(ev types.DomainEvent) types.EventEnvelope {
	env := types.EventEnvelope{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Event:     ev,
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return env
	}
	subs := make([]Subscriber, 0, len(b.global))
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	b.mu.RUnlock()

	b.buffer.Append(env)

	for _, sub := range subs {
		sub(env)
	}
	return env
}

// EventsAfter returns every buffered envelope strictly after id, per the
// SSE replay semantics in spec §4.7.
func (b *Bus) EventsAfter(id uuid.UUID) []types.EventEnvelope {
	return b.buffer.After(id)
}

// Close closes the bus and drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.closedCancel()
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel for advanced use
// cases (middleware, routing, or a future distributed backend).
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
