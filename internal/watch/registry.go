package watch

import "sync"

// Registry keys subjects by topic, typically a username. A subject lives
// only while it has subscribers, so the registry holds one entry per open
// stream rather than one per key ever seen.
type Registry[T any] struct {
	mu       sync.Mutex
	subjects map[string]*Subject[T]
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{subjects: make(map[string]*Subject[T])}
}

// Subscribe subscribes to key, creating its subject on first use. After
// Close the returned subscription is already closed.
func (r *Registry[T]) Subscribe(key string) *Subscription[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return closedSubscription[T]()
	}

	s, ok := r.subjects[key]
	if !ok {
		s = NewSubject[T]()
		r.subjects[key] = s
	}
	return s.subscribe(func() { r.release(key, s) })
}

// release drops the subject for key once its last subscriber is gone.
func (r *Registry[T]) release(key string, s *Subject[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subjects[key] == s && s.Subscribers() == 0 {
		delete(r.subjects, key)
	}
}

// Subscribers returns the number of subscribers to key without creating a subject.
func (r *Registry[T]) Subscribers(key string) int {
	r.mu.Lock()
	s, ok := r.subjects[key]
	r.mu.Unlock()

	if !ok {
		return 0
	}
	return s.Subscribers()
}

// Publish sends v to subscribers of key. Keys nobody subscribes to are ignored.
func (r *Registry[T]) Publish(key string, v T) {
	r.mu.Lock()
	s, ok := r.subjects[key]
	r.mu.Unlock()

	if ok {
		s.Publish(v)
	}
}

// Close closes every subject and every subscription handed out later.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for key, s := range r.subjects {
		s.Close()
		delete(r.subjects, key)
	}
}
