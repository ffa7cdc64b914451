// Package handoff implements the bounded queue that carries transformed
// items from the producer to the consumer.
package handoff

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Kind tags a queue entry.
type Kind uint8

const (
	KindItem Kind = iota
	KindDone
)

// Entry is either an item ready to publish or the end-of-stream sentinel.
type Entry struct {
	Kind Kind
	ID   string
}

// Item wraps an identifier whose staging sub-directory is ready to publish.
func Item(id string) Entry { return Entry{Kind: KindItem, ID: id} }

// Done is the end-of-stream sentinel.
func Done() Entry { return Entry{Kind: KindDone} }

// IsDone reports whether e is the sentinel.
func (e Entry) IsDone() bool { return e.Kind == KindDone }

func (e Entry) String() string {
	if e.IsDone() {
		return "<done>"
	}
	return e.ID
}

// Queue is a fixed-capacity FIFO. Put blocks while full; Drain blocks while
// empty. Occupancy never exceeds Cap.
type Queue struct {
	entries   chan Entry
	space     chan struct{}
	highWater atomic.Int64
}

// New returns a queue holding at most capacity entries.
func New(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("handoff: capacity must be positive, got %d", capacity)
	}
	return &Queue{
		entries: make(chan Entry, capacity),
		space:   make(chan struct{}, 1),
	}, nil
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return cap(q.entries) }

// Len returns the current occupancy. The value is a snapshot.
func (q *Queue) Len() int { return len(q.entries) }

// Available returns Cap minus Len.
func (q *Queue) Available() int { return q.Cap() - q.Len() }

// HighWater returns the largest occupancy observed after a Put.
func (q *Queue) HighWater() int { return int(q.highWater.Load()) }

// Put enqueues e, blocking while the queue is full.
func (q *Queue) Put(ctx context.Context, e Entry) error {
	select {
	case q.entries <- e:
		q.observe()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPut enqueues e only if space is available right now.
func (q *Queue) TryPut(e Entry) bool {
	select {
	case q.entries <- e:
		q.observe()
		return true
	default:
		return false
	}
}

// Drain blocks until at least one entry is queued, then removes and returns
// every entry queued at that moment, oldest first.
func (q *Queue) Drain(ctx context.Context) ([]Entry, error) {
	var first Entry
	select {
	case first = <-q.entries:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	n := len(q.entries)
	batch := make([]Entry, 0, n+1)
	batch = append(batch, first)
	for i := 0; i < n; i++ {
		select {
		case e := <-q.entries:
			batch = append(batch, e)
		default:
			i = n
		}
	}
	q.signalSpace()
	return batch, nil
}

// Space returns a channel that receives after a Drain frees capacity.
// Notifications coalesce; one receive may stand for several drains.
func (q *Queue) Space() <-chan struct{} { return q.space }

func (q *Queue) signalSpace() {
	select {
	case q.space <- struct{}{}:
	default:
	}
}

func (q *Queue) observe() {
	n := int64(len(q.entries))
	for {
		cur := q.highWater.Load()
		if n <= cur || q.highWater.CompareAndSwap(cur, n) {
			return
		}
	}
}
