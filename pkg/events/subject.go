// Package events provides a typed observer abstraction: subscribers register
// a callback, receive values in emission order, and unsubscribe on teardown.
package events

import (
	"sync"
)

// Subject publishes values of type T to its subscribers.
//
// Callbacks run synchronously on the publishing goroutine, in subscription
// order, so a subscriber observes every value exactly once and in the order
// it was published.
type Subject[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

// NewSubject creates a Subject with no subscribers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{
		subs: make(map[uint64]func(T)),
	}
}

// Subscription is returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe registers fn. The caller must call Unsubscribe when done.
func (s *Subject[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]func(T))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	return &Subscription{cancel: func() { s.remove(id) }}
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Publish delivers value to every current subscriber.
func (s *Subject[T]) Publish(value T) {
	s.mu.RLock()
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Count returns the current number of subscribers.
func (s *Subject[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Chan subscribes a buffered channel. Delivery is non-blocking: values are
// dropped for a consumer whose buffer is full. The returned function
// unsubscribes and closes the channel.
func (s *Subject[T]) Chan(buffer int) (<-chan T, func()) {
	ch := make(chan T, buffer)
	var mu sync.Mutex
	closed := false

	sub := s.Subscribe(func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- v:
		default:
			// Drop value for slow consumer
		}
	})

	return ch, func() {
		sub.Unsubscribe()
		mu.Lock()
		if !closed {
			closed = true
			close(ch)
		}
		mu.Unlock()
	}
}
