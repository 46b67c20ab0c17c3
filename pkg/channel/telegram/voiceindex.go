package telegram

import "sync"

const defaultIndexCapacity = 512

// voiceIndex is a bounded in-memory map of recently seen voice messages,
// keyed by message reference. The Bot API has no message lookup call, so
// action tokens are resolved against this index instead; entries beyond
// capacity are evicted oldest-first.
type voiceIndex struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

func newVoiceIndex(capacity int) *voiceIndex {
	if capacity <= 0 {
		capacity = defaultIndexCapacity
	}

	return &voiceIndex{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

func (idx *voiceIndex) put(ref string, fileID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.entries[ref]; !exists {
		idx.order = append(idx.order, ref)
	}
	idx.entries[ref] = fileID

	for len(idx.order) > idx.capacity {
		oldest := idx.order[0]
		idx.order = idx.order[1:]
		delete(idx.entries, oldest)
	}
}

func (idx *voiceIndex) get(ref string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fileID, ok := idx.entries[ref]
	return fileID, ok
}

func (idx *voiceIndex) len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return len(idx.entries)
}
