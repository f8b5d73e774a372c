// Package state keeps the recent snapshot history in memory so a
// monitor client connecting mid-run can hydrate instantly. Nothing
// here touches disk — the history dies with the process.
package state

import (
	"sync"

	"github.com/shadow30812/sentinel/internal/model"
)

// RingBuffer — fixed-capacity circular buffer of snapshots. Safe for a
// single writer (the engine) and multiple readers (broadcast clients).
type RingBuffer struct {
	mu   sync.RWMutex
	data []model.Snapshot
	head int // next write position
	size int
}

// NewRingBuffer creates a ring buffer holding up to capacity
// snapshots.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]model.Snapshot, capacity)}
}

// Add inserts a snapshot, evicting the oldest once full. O(1).
func (rb *RingBuffer) Add(snap model.Snapshot) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.head] = snap
	rb.head = (rb.head + 1) % len(rb.data)
	if rb.size < len(rb.data) {
		rb.size++
	}
}

// All returns a copy of the buffered snapshots in chronological order.
func (rb *RingBuffer) All() []model.Snapshot {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return nil
	}

	out := make([]model.Snapshot, 0, rb.size)
	if rb.size < len(rb.data) {
		out = append(out, rb.data[:rb.head]...)
	} else {
		// Full buffer: head is both the next write slot and the oldest
		// element.
		out = append(out, rb.data[rb.head:]...)
		out = append(out, rb.data[:rb.head]...)
	}
	return out
}

// Latest returns the most recent snapshot, if any.
func (rb *RingBuffer) Latest() (model.Snapshot, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return model.Snapshot{}, false
	}
	idx := (rb.head - 1 + len(rb.data)) % len(rb.data)
	return rb.data[idx], true
}

// Len returns the current number of buffered snapshots.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}
