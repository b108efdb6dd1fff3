package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"chat-widget/internal/domain"
)

const defaultQueueSize = 256

type subscription struct {
	id      uint64
	handler domain.EventHandler
}

type envelope struct {
	ctx   context.Context
	event domain.Event
}

// Bus is an in-process event bus. Events are delivered by a single worker
// goroutine in publish order, so every subscriber observes the same sequence.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]subscription
	allSubs []subscription
	nextID  atomic.Uint64
	dropped atomic.Uint64
	logger  *slog.Logger

	queue   chan envelope
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool
}

// New creates an event bus and starts its delivery worker.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Bus{
		typed:  make(map[domain.EventType][]subscription),
		logger: logger,
		queue:  make(chan envelope, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Publish queues event for delivery and never blocks the caller. When the
// queue is full, because a handler is slow or stuck, the event is dropped and
// counted. Publishing on a closed bus is a no-op.
//
// Handlers run on the single delivery goroutine and must not block.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	env := envelope{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case b.queue <- env:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("event dropped: queue full",
			"event", string(event.Type),
			"dropped_total", n,
		)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) run() {
	defer close(b.done)
	for env := range b.queue {
		b.deliver(env)
	}
}

func (b *Bus) deliver(env envelope) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.typed[env.event.Type])+len(b.allSubs))
	subs = append(subs, b.typed[env.event.Type]...)
	subs = append(subs, b.allSubs...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(env, sub)
	}
}

func (b *Bus) invoke(env envelope, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(env.event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(env.ctx, env.event)
}

// Subscribe registers handler for one event type and returns its
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[eventType] = remove(b.typed[eventType], sub.id)
	}
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	sub := subscription{id: b.nextID.Add(1), handler: handler}

	b.mu.Lock()
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allSubs = remove(b.allSubs, sub.id)
	}
}

// Close stops accepting events and returns once every queued event has been
// delivered. It is idempotent.
func (b *Bus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()
	<-b.done
}

func remove(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}

var _ domain.EventBus = (*Bus)(nil)
