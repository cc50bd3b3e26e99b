package models

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// FIFOQueue is a bounded queue. Enqueue on a full queue evicts the oldest item.
type FIFOQueue[T any] struct {
	caller   string
	items    []T
	capacity int
	mutex    *sync.Mutex
}

func NewFIFOQueue[T any](caller string, capacity int) *FIFOQueue[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &FIFOQueue[T]{
		caller:   caller,
		items:    make([]T, 0, capacity),
		capacity: capacity,
		mutex:    &sync.Mutex{},
	}
}

func (q *FIFOQueue[T]) Enqueue(item T) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.items) >= q.capacity {
		log.Tracef("%v (%p): queue full, evicting oldest item", q.caller, q)
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
	}

	q.items = append(q.items, item)
	log.Tracef("%v (%p): Enqueued item: %v, count=%v", q.caller, q, item, len(q.items))
}

func (q *FIFOQueue[T]) Dequeue() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true
}

// Snapshot returns the queued items oldest first without consuming them.
func (q *FIFOQueue[T]) Snapshot() []T {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.items)
}

func (q *FIFOQueue[T]) Clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.items = make([]T, 0, q.capacity)
}
