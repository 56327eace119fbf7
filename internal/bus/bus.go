// Package bus is the in-process typed publish/subscribe fabric connecting
// the stores to the trigger engine, the watchdog, and the WebSocket
// broadcaster.
package bus

import (
	"log/slog"
	"sync"

	"github.com/landywei/agent-co/internal/model"
)

// Bus delivers events synchronously to all subscribers, in subscription
// order, on the goroutine that performed the mutation. Subscribers must not
// block: anything slow enqueues onto its own queue and returns.
type Bus struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs []func(model.Event)
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers fn for every subsequent Publish. There is no
// unsubscribe: subscriptions are process-local and live for the process.
func (b *Bus) Subscribe(fn func(model.Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber. A panicking subscriber is logged
// and skipped; it never prevents delivery to the others.
func (b *Bus) Publish(ev model.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, fn := range subs {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn func(model.Event), ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: subscriber panic", "event", string(ev.Kind()), "panic", r)
		}
	}()
	fn(ev)
}
