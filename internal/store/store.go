// Package store holds the events of a run and persists them as a batch
// document and an event stream.
package store

import (
	"sort"
	"sync"

	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/pkg/metrics"
)

// Store is an append-only, concurrency-safe collection of events.
type Store struct {
	mu     sync.RWMutex
	events []model.ProbeEvent
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Append adds one event. Appends from concurrent workers never interleave.
func (s *Store) Append(ev model.ProbeEvent) { //nolint:gocritic // hugeParam: events are values once stored
	s.mu.Lock()
	s.events = append(s.events, ev)
	n := len(s.events)
	s.mu.Unlock()
	metrics.UpdateStoreEvents(n)
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns a copy of all events, stably sorted by timestamp.
func (s *Store) Events() []model.ProbeEvent {
	s.mu.RLock()
	out := make([]model.ProbeEvent, len(s.events))
	copy(out, s.events)
	s.mu.RUnlock()
	SortByTime(out)
	return out
}

// ByVendor returns time-sorted events grouped by vendor.
func (s *Store) ByVendor() map[string][]model.ProbeEvent {
	out := make(map[string][]model.ProbeEvent)
	for _, ev := range s.Events() {
		out[ev.Vendor] = append(out[ev.Vendor], ev)
	}
	return out
}

// SortByTime stably sorts events by timestamp ascending.
func SortByTime(events []model.ProbeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
