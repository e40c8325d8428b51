package testutil

import (
	"maps"
	"sync"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// MemoryPersister is an in-memory state.Persister for tests.
//
// It records every save so tests can assert on save counts and on the exact
// snapshot written. LoadErr and SaveErr inject failures.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type MemoryPersister struct {
	mu      sync.Mutex
	records map[string]state.Record
	saves   int

	// LoadErr, if set, is returned by Load.
	LoadErr error

	// SaveErr, if set, is returned by Save and the snapshot is discarded.
	SaveErr error
}

// NewMemoryPersister creates a persister whose Load returns a copy of initial.
func NewMemoryPersister(initial map[string]state.Record) *MemoryPersister {
	return &MemoryPersister{records: maps.Clone(initial)}
}

// Load returns a copy of the last saved records.
func (p *MemoryPersister) Load() (map[string]state.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	return maps.Clone(p.records), nil
}

// Save stores a copy of records and counts the call.
func (p *MemoryPersister) Save(records map[string]state.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.records = maps.Clone(records)
	p.saves++
	return nil
}

// Saves returns the number of successful saves.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Records returns a copy of the last saved records.
func (p *MemoryPersister) Records() map[string]state.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.records)
}
