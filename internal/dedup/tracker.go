// Package dedup tracks already-answered message ids so repeated polls never
// produce a second reply to the same inbound message.
package dedup

// CompactionBound is the size above which the set is cleared wholesale.
// A full clear briefly re-admits reprocessing risk for the most recent
// message per thread; an accepted trade against unbounded memory.
const CompactionBound = 1000

// Tracker is a bounded in-memory set of handled message ids. Not persisted:
// a restart re-admits at most the newest message per thread, and most of
// those are filtered earlier by the last-message-is-ours check.
//
// Only ever touched between the dispatch loop's suspension points, so no
// lock is taken.
type Tracker struct {
	seen  map[string]struct{}
	bound int
}

// NewTracker creates a tracker with the default compaction bound.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{}), bound: CompactionBound}
}

// IsNew reports whether id has not been handled yet.
func (t *Tracker) IsNew(id string) bool {
	_, ok := t.seen[id]
	return !ok
}

// Mark records id as handled.
func (t *Tracker) Mark(id string) {
	t.seen[id] = struct{}{}
}

// MaybeCompact clears the whole set once it outgrows the bound.
func (t *Tracker) MaybeCompact() {
	if len(t.seen) > t.bound {
		t.seen = make(map[string]struct{})
	}
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	return len(t.seen)
}
