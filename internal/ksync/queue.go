package ksync

import (
	"sync/atomic"

	"github.com/emirpasic/gods/queues/circularbuffer"

	"krtos/internal/syscall"
)

// Queue is a bounded FIFO shared between tasks.
//
// A single waiting flag covers both a producer blocked on a full queue and a
// consumer blocked on an empty one; the scheduler cannot tell them apart.
type Queue[T any] struct {
	mu       Mutex
	buf      *circularbuffer.Queue
	capacity int
	waiting  atomic.Bool
}

// NewQueue creates a queue holding at most capacity elements.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		buf:      circularbuffer.New(capacity),
		capacity: capacity,
	}
}

// Push appends v, blocking while the queue is full.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	for q.buf.Full() {
		q.waiting.Store(true)
		q.mu.Unlock()
		syscall.YieldOn(q)
		q.mu.Lock()
	}
	q.buf.Enqueue(v)
	q.waiting.Store(false)
	q.mu.Unlock()
}

// CopyAndPop removes and returns the oldest element, blocking while the
// queue is empty.
func (q *Queue[T]) CopyAndPop() T {
	q.mu.Lock()
	for q.buf.Empty() {
		q.waiting.Store(true)
		q.mu.Unlock()
		syscall.YieldOn(q)
		q.mu.Lock()
	}
	v, _ := q.buf.Dequeue()
	q.waiting.Store(false)
	q.mu.Unlock()
	out, _ := v.(T)
	return out
}

// TryPush appends v unless the queue is full.
func (q *Queue[T]) TryPush(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.buf.Full() {
		return false
	}
	q.buf.Enqueue(v)
	q.waiting.Store(false)
	return true
}

// TryPop removes the oldest element unless the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.buf.Dequeue()
	if !ok {
		var zero T
		return zero, false
	}
	q.waiting.Store(false)
	out, _ := v.(T)
	return out, true
}

func (q *Queue[T]) Clear() {
	q.mu.Lock()
	q.buf.Clear()
	q.mu.Unlock()
}

func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Empty()
}

func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Full()
}

func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Size()
}

func (q *Queue[T]) MaxSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// IsWaiting reports whether a producer or consumer is parked on the queue.
func (q *Queue[T]) IsWaiting() bool { return q.waiting.Load() }
