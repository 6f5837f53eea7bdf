package plugins

import (
	"sync"
)

// Registry holds plugin records keyed by module identity.
// Inserts are idempotent so the resolution hook may add records while a
// batch load is still iterating.
type Registry struct {
	records map[string]*Record
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Add registers rec unless a record with the same identity exists.
// It returns the record held by the registry and whether rec was inserted.
func (r *Registry) Add(rec *Record) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[rec.Identity]; ok {
		return existing, false
	}
	r.records[rec.Identity] = rec
	r.order = append(r.order, rec.Identity)

	return rec, true
}

// Get retrieves a record by identity.
func (r *Registry) Get(identity string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[identity]
	return rec, ok
}

// List returns all records in registration order.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.records[id])
	}
	return result
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]*Record)
	r.order = nil
}
