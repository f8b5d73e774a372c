// Package bus carries snapshots from the engine to its observers. One
// writer (the engine goroutine), any number of subscribers; delivery
// is in tick order and never blocks the writer.
package bus

import (
	"sync"

	"github.com/shadow30812/sentinel/internal/model"
)

// Bus fans engine snapshots out to subscriber channels.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan model.Snapshot
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe returns a read-only snapshot channel with the given buffer
// size. Subscribers must drain it; a full channel costs them their
// oldest pending snapshot, never the engine's time.
func (b *Bus) Subscribe(bufferSize int) <-chan model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Snapshot, bufferSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish delivers the snapshot to every subscriber. When a subscriber
// is full, its oldest pending snapshot is evicted to make room: a slow
// consumer falls behind by dropping history, and the newest state is
// always the one that lands. Publish is only called from the engine
// goroutine, so the evict-then-send pair cannot race another writer.
func (b *Bus) Publish(s model.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}

		// Full: evict the oldest, then retry once. The retry can still
		// miss if the consumer drained the channel in between, in which
		// case the plain send succeeds anyway.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
