// Package hub implements the subscription fan-out the node runtime uses
// to deliver admitted messages to application consumers.
package hub

import (
	"sync"

	"github.com/gruberchris/gossnet/pkg/envelope"
)

// Item is a single admitted message as delivered to a subscriber.
type Item[T any] struct {
	Envelope envelope.Envelope
	Payload  T
}

// Hub fans an admitted message out to zero or more subscribers, each
// seeing every item in the order the node admitted it locally. Ordering
// between subscribers is unspecified. The hub is unbounded: a subscriber
// that does not consume will cause unbounded memory growth in its own
// queue. This is an explicit trade for simplicity, not mitigated here —
// callers that need bounded memory must consume promptly or unsubscribe.
type Hub[T any] struct {
	mu   sync.RWMutex
	subs map[*Subscription[T]]struct{}
}

// New creates an empty Hub.
func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe returns a reader-handle yielding a lazy, potentially infinite
// sequence of Items via its C channel. The sequence terminates (the
// channel closes) when the subscriber unsubscribes or the hub is closed.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	s := newSubscription[T]()
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s. Items already queued for s remain deliverable;
// no new items are queued for it afterward.
func (h *Hub[T]) Unsubscribe(s *Subscription[T]) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.closeForNewItems()
}

// Publish delivers item to every current subscriber. Subscribers are
// snapshotted under the lock and pushed to outside of it, so a blocked or
// slow subscriber's queue push can never deadlock a concurrent
// Subscribe/Unsubscribe call.
func (h *Hub[T]) Publish(item Item[T]) {
	h.mu.RLock()
	subs := make([]*Subscription[T], 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.push(item)
	}
}

// Close terminates every current subscriber's sequence cleanly. Used when
// the owning node stops.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	subs := make([]*Subscription[T], 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[*Subscription[T]]struct{})
	h.mu.Unlock()

	for _, s := range subs {
		s.closeForNewItems()
	}
}

// Subscription is a reader-handle onto the hub's fan-out. Its queue is
// unbounded: Publish never blocks on a slow subscriber, backed by a
// growable buffer rather than a fixed-capacity channel.
type Subscription[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Item[T]
	closed bool

	out  chan Item[T]
	done chan struct{}
}

func newSubscription[T any]() *Subscription[T] {
	s := &Subscription[T]{
		out:  make(chan Item[T]),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// C returns the channel to range over. It closes once every item queued
// before unsubscription (or hub close) has been delivered.
func (s *Subscription[T]) C() <-chan Item[T] {
	return s.out
}

func (s *Subscription[T]) push(item Item[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, item)
	s.mu.Unlock()
	s.cond.Signal()
}

// closeForNewItems stops accepting new items but lets the pump goroutine
// drain whatever is already queued before it closes C().
func (s *Subscription[T]) closeForNewItems() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Subscription[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		item := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- item:
		case <-s.done:
			return
		}
	}
}
