// Package watch provides in-process subscriptions that replay the latest
// value to new subscribers and coalesce bursts for slow readers.
package watch

import (
	"sync"
)

// Subscription is a cancellable handle on a Subject.
type Subscription[T any] struct {
	ch     chan T
	cancel func()
	once   sync.Once
}

// Updates returns the channel carrying published values. It is closed on Cancel.
func (s *Subscription[T]) Updates() <-chan T {
	return s.ch
}

// Cancel detaches the subscription. Calling it more than once is harmless.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
}

// Subject holds the latest value of a stream and fans it out to subscribers.
// Each subscriber buffers one value; an unread value is replaced by a newer one.
type Subject[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	latest T
	has    bool
	closed bool
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[uint64]chan T)}
}

// Publish records v as the latest value and delivers it to every subscriber.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.latest = v
	s.has = true

	for _, ch := range s.subs {
		deliver(ch, v)
	}
}

// subscribe registers a new subscriber. When a value has already been
// published it is immediately available on the subscription. released, when
// set, runs after cancellation has detached the subscriber.
func (s *Subject[T]) subscribe(released func()) *Subscription[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedSubscription[T]()
	}

	ch := make(chan T, 1)
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	if s.has {
		ch <- s.latest
	}

	return &Subscription[T]{
		ch: ch,
		cancel: func() {
			s.mu.Lock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
			s.mu.Unlock()

			if released != nil {
				released()
			}
		},
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close detaches all subscribers and rejects further publishes.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func closedSubscription[T any]() *Subscription[T] {
	ch := make(chan T)
	close(ch)
	return &Subscription[T]{ch: ch, cancel: func() {}}
}

// deliver must be called with the subject lock held; the lock makes the
// publisher the only sender, so after draining there is room for v.
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- v
}
