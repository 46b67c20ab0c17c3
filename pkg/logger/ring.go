package logger

import "sync"

// DefaultRingCapacity bounds the /logs inspection endpoint history.
const DefaultRingCapacity = 100

// Ring is a process-wide bounded buffer of recent log entries.
//
// Appends beyond capacity evict the oldest entry. Safe for concurrent use.
type Ring struct {
	mu       sync.Mutex
	capacity int
	entries  []LogEntry
}

// NewRing creates a ring buffer holding at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}

	return &Ring{capacity: capacity}
}

// Append stores one entry, evicting the oldest when full.
func (r *Ring) Append(entry LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Snapshot returns the retained entries, oldest first.
func (r *Ring) Snapshot() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}
