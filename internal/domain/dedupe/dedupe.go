// Package dedupe tracks event ids so that an event ingested twice, for
// example from the batch and the stream file of the same run, counts once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/pathbench/internal/domain/model"
)

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper keeps seen ids in a map. In bounded mode the oldest id is
// evicted first, tracked by a ring of insertion order.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order, bounded mode only
	next    int      // ring slot to overwrite
	maxSize int      // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper. It is unbounded unless
// WithMaxSize says otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			delete(d.seen, d.ring[d.next])
			d.size.Add(-1)
			d.ring[d.next] = id
			d.next = (d.next + 1) % d.maxSize
		}
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Filter returns events whose id was not seen before, in order. Events
// without an id are always kept.
func Filter(ctx context.Context, d Deduper, events []model.ProbeEvent) (kept []model.ProbeEvent, dropped int) {
	kept = make([]model.ProbeEvent, 0, len(events))
	for i := range events {
		if events[i].ID != "" && d.SeenAndRecord(ctx, events[i].ID) {
			dropped++
			continue
		}
		kept = append(kept, events[i])
	}
	return kept, dropped
}
