// Package queue provides a lock-free Multi-Producer Single-Consumer (MPSC)
// queue. The RPC session uses it as the outbound write path: any number of
// goroutines (client calls, dispatch workers completing responses) push
// frames concurrently, and a single writer goroutine consumes them, so
// two frames' bytes can never interleave on the transport.
//
// Guarantees:
//
//   - Lock-free pushes: atomic operations keep latency low under contention
//   - Unbounded size: limited only by available memory
//   - Single consumer: one goroutine drains via the Recv() channel
//   - Every Push that returned true is delivered before the output
//     channel closes, even when the push races Close()
package queue

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the internal linked list
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// MPSC is a lock-free multi-producer single-consumer queue backed by a
// linked list with a sentinel head.
type MPSC[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool

	// Condition variable so the consumer sleeps instead of spinning when
	// the queue is empty.
	mu   sync.Mutex
	cond *sync.Cond
}

// New creates the queue and starts its consumer goroutine.
func New[T any]() *MPSC[T] {
	sentinel := &node[T]{}

	q := &MPSC[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push adds an item to the queue. It returns false if the item is nil or
// the queue is closed. A true return guarantees the item is delivered on
// Recv before the channel closes; a Push racing Close may return false
// even though the item slips into the final drain.
//
// Thread-safety: safe to call from any number of goroutines concurrently.
func (q *MPSC[T]) Push(value *T) bool {
	if value == nil {
		return false
	}
	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}

	var backoff uint8
	for {
		tailNode := q.tail.Load()

		next := tailNode.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// Appended. The tail CAS may lose to a helping producer,
				// which is fine: tail still converges.
				q.tail.CompareAndSwap(tailNode, newNode)
				q.cond.Signal()
				// A Close racing this push may already have let the
				// consumer begin its final drain. Observing closed here
				// means the append is not guaranteed to be seen, so the
				// push must not report success.
				if q.closed.Load() {
					return false
				}
				return true
			}
		} else {
			// help update the tail pointer if another producer appended a
			// node but has not moved the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// Exponential backoff: spin at low contention, yield once the
		// retry count grows, so producers do not stampede the tail CAS.
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume moves items from the linked list to the output channel and frees
// the consumed nodes.
func (q *MPSC[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			value := next.value
			q.head.Store(next)
			q.out <- value
			next.value = nil
		}

		if !hasItems && q.closed.Load() {
			// One more scan after observing the flag: an append whose
			// closed check preceded Close happened before this load and
			// must still be drained.
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		if !hasItems {
			q.mu.Lock()
			// re-check under the lock so a Push between the scan and the
			// Wait cannot strand its signal
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive-only channel the single consumer drains. The
// channel closes after Close() once every queued item was delivered.
func (q *MPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close closes the queue, preventing further pushes. Items already queued
// are still delivered.
func (q *MPSC[T]) Close() {
	q.closed.Store(true)
	q.cond.Signal()
}

// IsClosed returns true if the queue is closed.
func (q *MPSC[T]) IsClosed() bool {
	return q.closed.Load()
}
