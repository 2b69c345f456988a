package engine

import (
	"sync"
)

// authorLocks hands out one mutex per author ID, created on first use and
// dropped when the last holder releases it. The engine takes this lock around
// every profile read-modify-write, so the exclusivity invariant holds for any
// mix of callers (scheduler workers, the synchronous analyze endpoint, join
// events) and not just for work routed through the scheduler.
type authorLocks struct {
	lk      sync.Mutex
	entries map[string]*authorLockEntry
}

type authorLockEntry struct {
	mu      sync.Mutex
	holders int
}

// Lock acquires the mutex for authorID and returns the matching unlock.
func (l *authorLocks) Lock(authorID string) func() {
	l.lk.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*authorLockEntry)
	}
	e, ok := l.entries[authorID]
	if !ok {
		e = &authorLockEntry{}
		l.entries[authorID] = e
	}
	e.holders++
	l.lk.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.lk.Lock()
		e.holders--
		if e.holders == 0 {
			delete(l.entries, authorID)
		}
		l.lk.Unlock()
	}
}
