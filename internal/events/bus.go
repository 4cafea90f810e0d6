package events

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// All is the catch-all topic.
const All = "*"

// Handler receives one event. It runs on the emitter's goroutine.
type Handler func(Event)

// Subscription identifies a registered handler for Unsubscribe.
type Subscription struct {
	id    uint64
	topic string
}

// Topic returns the normalised topic the subscription listens on.
func (s Subscription) Topic() string {
	return s.topic
}

type subscriber struct {
	id uint64
	h  Handler
}

// Bus delivers events synchronously, in emission order, to catch-all,
// exact-type and category subscribers. There is no subscriber limit.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	topics map[string][]subscriber
}

// NewBus creates an empty bus. A nil logger discards handler panic reports.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger, topics: make(map[string][]subscriber)}
}

// normalizeTopic maps "sync:*" to the category "sync"; "*" and exact types
// pass through.
func normalizeTopic(topic string) string {
	if topic != All && strings.HasSuffix(topic, ":*") {
		return strings.TrimSuffix(topic, ":*")
	}
	return topic
}

// Subscribe registers h for a topic: All, an exact event type such as
// "sync:start", or a category such as "sync" (also written "sync:*").
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	topic = normalizeTopic(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := subscriber{id: b.nextID, h: h}
	b.topics[topic] = append(b.topics[topic], sub)
	return Subscription{id: sub.id, topic: topic}
}

// Unsubscribe removes a subscription. It reports whether it was registered.
func (b *Bus) Unsubscribe(s Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[s.topic]
	for i, sub := range subs {
		if sub.id == s.id {
			b.topics[s.topic] = append(subs[:i:i], subs[i+1:]...)
			if len(b.topics[s.topic]) == 0 {
				delete(b.topics, s.topic)
			}
			return true
		}
	}
	return false
}

// SubscriberCount returns the number of live subscriptions across all topics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.topics {
		n += len(subs)
	}
	return n
}

// Emit delivers e to catch-all subscribers, then exact-type subscribers, then
// category subscribers. A panicking handler is logged and skipped; delivery
// to the rest continues.
func (b *Bus) Emit(e Event) {
	cat := e.Category()

	b.mu.RLock()
	var targets []subscriber
	targets = append(targets, b.topics[All]...)
	targets = append(targets, b.topics[e.Type]...)
	if cat != e.Type {
		targets = append(targets, b.topics[cat]...)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("event", e.Type),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	sub.h(e)
}
