package reporting

import "sync"

// DefaultJournalCapacity is used when NewJournal is given a non-positive size.
const DefaultJournalCapacity = 10000

// Journal is a bounded in-memory log of outcomes. Once full, the oldest
// entries are overwritten.
type Journal struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

// NewJournal creates a journal holding at most capacity entries.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &Journal{entries: make([]LogEntry, capacity)}
}

// Append records an entry.
func (j *Journal) Append(e LogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.next] = e
	j.next++
	if j.next == len(j.entries) {
		j.next = 0
		j.full = true
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (j *Journal) Entries() []LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if !j.full {
		out := make([]LogEntry, j.next)
		copy(out, j.entries[:j.next])
		return out
	}
	out := make([]LogEntry, 0, len(j.entries))
	out = append(out, j.entries[j.next:]...)
	return append(out, j.entries[:j.next]...)
}

// Len returns the number of retained entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return len(j.entries)
	}
	return j.next
}
