// Package bus provides the in-process publish/subscribe channel that carries
// update events from the mutation notifier to streaming subscribers.
//
// Delivery is fan-out and best-effort: every subscription active on a topic
// at publish time receives the payload (subject to its predicate); there is
// no buffering or replay, and a payload published with no subscriber attached
// is simply lost.
package bus

import (
	"log/slog"
	"sync"
)

// Topic names. All user update routing happens by predicate on the single
// shared TopicTaskUpdates rather than per-recipient topics.
const (
	TopicTaskUpdates = "task.updates"
	TopicUserCreated = "user.created"
)

// Predicate filters payloads before delivery to one subscription.
// A nil predicate matches everything.
type Predicate func(payload any) bool

// Bus is a topic-keyed in-process event bus. Construct it in main and inject
// it into publishers and subscribers; there is no package-level instance.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}

	bufSize int
}

// Subscription is a handle to one attached subscriber. Payloads matching the
// predicate arrive on Events until Close is called.
type Subscription struct {
	topic string
	pred  Predicate
	ch    chan any
	bus   *Bus
	once  sync.Once
}

// New creates an empty Bus. bufSize is the per-subscription channel buffer;
// values below 1 fall back to a small default.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 16
	}
	return &Bus{
		topics:  make(map[string]map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe attaches a new subscription to topic. Only payloads published
// after Subscribe returns are visible to it.
func (b *Bus) Subscribe(topic string, pred Predicate) *Subscription {
	s := &Subscription{
		topic: topic,
		pred:  pred,
		ch:    make(chan any, b.bufSize),
		bus:   b,
	}

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[s] = struct{}{}
	b.mu.Unlock()

	return s
}

// Publish delivers payload to every current subscription on topic whose
// predicate matches. A predicate that panics counts as no-match and never
// breaks delivery to other subscribers. A subscriber whose buffer is full
// misses the payload; consumers treat every event as a full state
// replacement, so a dropped one is recovered by the next.
// Delivery happens under the read lock so a concurrent Close (which closes
// the channel under the write lock) can never race a send.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.topics[topic] {
		if !s.matches(payload) {
			continue
		}
		select {
		case s.ch <- payload:
		default:
			slog.Warn("event bus: subscriber buffer full, dropping payload", "topic", topic)
		}
	}
}

// Events returns the channel on which matching payloads arrive.
// It is closed when the subscription is closed.
func (s *Subscription) Events() <-chan any {
	return s.ch
}

// Close detaches the subscription. Idempotent and safe to call concurrently
// with an in-flight Publish; no payloads are delivered after it returns
// beyond those already buffered.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		if subs, ok := b.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(b.topics, s.topic)
			}
		}
		b.mu.Unlock()
		close(s.ch)
	})
}

// matches evaluates the predicate, recovering a panicking predicate as a
// non-match so one subscriber's filter error cannot affect the others.
func (s *Subscription) matches(payload any) (ok bool) {
	if s.pred == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event bus: predicate panicked, treating as no-match",
				"topic", s.topic,
				"panic", r)
			ok = false
		}
	}()
	return s.pred(payload)
}
