// Package aggregate provides the shared ticker -> record map that stage
// workers publish into. It is the only mutable state shared across workers;
// every merge runs under one mutex scoped to the whole map, and the map
// lives for a single run.
package aggregate

import (
	"sync"

	"finscrape/internal/record"
)

// Map collects per-ticker records from concurrent workers.
type Map struct {
	mu      sync.Mutex
	records map[string]*record.Record
}

// New creates an empty aggregator for one run.
func New() *Map {
	return &Map{records: make(map[string]*record.Record)}
}

// Publish merges the partial record into the entry for key, creating it if
// absent. The critical section covers the whole merge so readers never see
// a torn record.
func (m *Map) Publish(key string, partial *record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		rec = record.New(key)
		m.records[key] = rec
	}
	rec.Merge(partial)
}

// Get returns the record for key, or nil.
func (m *Map) Get(key string) *record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key]
}

// Len returns the number of records collected so far.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ReadAll returns a snapshot of the map. Safe to call once the current
// stage's workers have all joined; the records themselves are shared, not
// copied.
func (m *Map) ReadAll() map[string]*record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*record.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}
