// Package bus provides an in-memory publish/subscribe event bus.
// Topics are plain strings; delivery is fan-out to every subscriber
// attached at publish time, with no replay and no persistence.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/usergraph/usergraph/internal/metrics"
)

// subscriber holds one attached consumer. Published payloads are
// appended to an unbounded FIFO queue under the subscriber's own lock,
// and a pump goroutine drains the queue into the outbound channel. The
// queue is what decouples publish latency from consumer speed: a slow
// consumer grows its own queue but never blocks the publisher or its
// sibling subscribers.
type subscriber struct {
	id    string
	topic string
	out   chan any

	mu    sync.Mutex
	queue []any
	wake  chan struct{}
}

// enqueue appends a payload and nudges the pump. Never blocks.
func (s *subscriber) enqueue(payload any) {
	s.mu.Lock()
	s.queue = append(s.queue, payload)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the head of the queue, or returns false if it is empty.
func (s *subscriber) next() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	head := s.queue[0]
	s.queue = s.queue[1:]
	return head, true
}

// Bus is an in-memory topic-keyed event bus. The zero value is not
// usable; construct with New.
type Bus struct {
	logger  *slog.Logger
	metrics metrics.Recorder

	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	closed bool
	done   chan struct{}
}

// New creates an event bus.
func New(logger *slog.Logger, recorder metrics.Recorder) *Bus {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Bus{
		logger:  logger.With("component", "bus"),
		metrics: recorder,
		topics:  make(map[string]map[string]*subscriber),
		done:    make(chan struct{}),
	}
}

// Publish delivers payload to every subscriber currently attached to
// topic. Subscribers that attach afterwards do not receive it, and a
// closed bus delivers nothing. Publish never blocks on consumers: each
// subscriber is handed the payload via its own unbounded queue.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		b.logger.Debug("event dropped, bus closed", "topic", topic)
		return
	}
	subs := make([]*subscriber, 0, len(b.topics[topic]))
	for _, sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.enqueue(payload)
	}

	b.metrics.IncEventPublished(topic)
	b.logger.Debug("event published", "topic", topic, "subscribers", len(subs))
}

// Subscribe attaches a new subscriber to topic and returns its event
// stream. The channel preserves publish order, yields each payload
// exactly once, and is closed only when ctx is cancelled or the bus
// shuts down. Cancelling ctx detaches the subscriber and drops any
// payloads still queued for it.
func (b *Bus) Subscribe(ctx context.Context, topic string) <-chan any {
	sub := &subscriber{
		id:    ulid.Make().String(),
		topic: topic,
		out:   make(chan any),
		wake:  make(chan struct{}, 1),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.out)
		return sub.out
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]*subscriber)
	}
	b.topics[topic][sub.id] = sub
	b.mu.Unlock()

	b.metrics.IncSubscriberAttached(topic)
	b.logger.Debug("subscriber attached", "topic", topic, "subscriber_id", sub.id)

	go b.pump(ctx, sub)

	return sub.out
}

// pump drains the subscriber's queue into its outbound channel until
// the subscriber's context ends or the bus closes.
func (b *Bus) pump(ctx context.Context, sub *subscriber) {
	defer func() {
		b.detach(sub)
		close(sub.out)
	}()

	for {
		payload, ok := sub.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case <-sub.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case sub.out <- payload:
		}
	}
}

// detach removes the subscriber from the registry. Idempotent.
func (b *Bus) detach(sub *subscriber) {
	b.mu.Lock()
	subs := b.topics[sub.topic]
	_, attached := subs[sub.id]
	if attached {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	b.mu.Unlock()

	if attached {
		b.metrics.IncSubscriberDetached(sub.topic)
		b.logger.Debug("subscriber detached", "topic", sub.topic, "subscriber_id", sub.id)
	}
}

// Close shuts the bus down: every pump stops and closes its outbound
// channel, removing its subscriber from the registry, and later
// Publish calls deliver nothing. New Subscribe calls after Close
// return an already-closed channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	count := 0
	for _, subs := range b.topics {
		count += len(subs)
	}
	b.mu.Unlock()

	close(b.done)

	b.logger.Info("event bus closed", "active_subscribers", count)
}
