package core

import (
	"sync"

	"go.uber.org/zap"
)

// SubscriptionID identifies a registered callback or listener
type SubscriptionID uint64

// ResultCallback receives results from the debounced path
type ResultCallback func(result *AnalysisResult)

// EventListener receives analysis lifecycle events
type EventListener func(event AnalysisEvent)

// registry is an ordered set of subscribers. Notification follows
// registration order and a panicking subscriber does not stop the others.
type registry[T any] struct {
	name   string
	logger *zap.Logger

	mu    sync.RWMutex
	next  SubscriptionID
	order []SubscriptionID
	subs  map[SubscriptionID]T
}

func newRegistry[T any](name string, logger *zap.Logger) *registry[T] {
	return &registry[T]{
		name:   name,
		logger: logger,
		subs:   make(map[SubscriptionID]T),
	}
}

func (r *registry[T]) add(sub T) SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	r.subs[id] = sub
	r.order = append(r.order, id)
	return id
}

func (r *registry[T]) remove(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return false
	}
	delete(r.subs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs = make(map[SubscriptionID]T)
	r.order = nil
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// each calls fn for every subscriber in registration order
func (r *registry[T]) each(fn func(T)) {
	r.mu.RLock()
	subs := make([]T, 0, len(r.order))
	for _, id := range r.order {
		subs = append(subs, r.subs[id])
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		r.call(fn, sub)
	}
}

func (r *registry[T]) call(fn func(T), sub T) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Subscriber panicked", zap.String("registry", r.name), zap.Any("panic", rec))
		}
	}()
	fn(sub)
}
