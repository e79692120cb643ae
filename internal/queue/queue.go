// Package queue implements a durable, deduplicated work-item queue for
// crawl requests. An ordered, immutable request list is dispatched through
// a cursor; two derived views (in-flight and reclaimed) track outstanding
// work, and a minimal snapshot of the mutable fields survives restarts.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotInFlight is returned when completing or reclaiming a key that
	// was never dispatched or is already completed.
	ErrNotInFlight = errors.New("request is not in flight")

	// ErrReclaimed is returned when completing a reclaimed key; it must be
	// fetched again before it can be handled.
	ErrReclaimed = errors.New("request is reclaimed and must be fetched again")

	// ErrAlreadyReclaimed is returned on a second reclaim without an
	// intervening fetch.
	ErrAlreadyReclaimed = errors.New("request is already reclaimed")
)

// List is the queue state machine. The request sequence is fixed after
// construction; all mutation happens through FetchNext, MarkHandled and
// Reclaim, each guarded by the list's mutex.
type List struct {
	mu sync.Mutex

	requests []*Request
	index    *keyIndex

	// states holds every key that has left StateUnseen. Unseen keys are
	// implicit: absent from the map with position >= cursor.
	states map[string]State

	// cursor is the position of the next never-dispatched request.
	// Monotonically non-decreasing.
	cursor int

	// reclaimed indexes the keys currently in StateReclaimed for O(1)
	// pops. Pop order is unspecified; reclaimed requests are served before
	// the cursor advances, nothing more.
	reclaimed []string

	// pending counts keys in StateDispatched or StateReclaimed.
	pending int

	handled int

	// version increments on every mutation of persisted state (cursor or
	// in-flight set). State is dirty while version != persistedVersion.
	version          uint64
	persistedVersion uint64
}

// FetchNext returns the next dispatchable request, or nil when nothing is
// immediately available. Reclaimed requests are served before the cursor
// advances into never-dispatched work.
func (l *List) FetchNext() *Request {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.reclaimed); n > 0 {
		key := l.reclaimed[n-1]
		l.reclaimed = l.reclaimed[:n-1]
		l.states[key] = StateDispatched

		pos, ok := l.index.Pos(key)
		if !ok {
			// Cannot happen: reclaimed keys come from the loaded list.
			panic(fmt.Sprintf("queue: reclaimed key %q missing from index", key))
		}
		return l.requests[pos]
	}

	if l.cursor < len(l.requests) {
		r := l.requests[l.cursor]
		l.states[r.Key] = StateDispatched
		l.pending++
		l.cursor++
		l.version++
		return r
	}

	return nil
}

// MarkHandled transitions an in-flight request to completed. Completed
// requests are never reissued.
func (l *List) MarkHandled(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.states[key] {
	case StateDispatched:
		l.states[key] = StateCompleted
		l.pending--
		l.handled++
		l.version++
		return nil
	case StateReclaimed:
		return fmt.Errorf("%w: %q", ErrReclaimed, key)
	case StateCompleted:
		return fmt.Errorf("%w: %q already handled", ErrNotInFlight, key)
	default:
		return fmt.Errorf("%w: %q was never dispatched", ErrNotInFlight, key)
	}
}

// Reclaim returns an in-flight request to the queue for redispatch, e.g.
// after a processing failure. The request stays in flight and is served by
// a subsequent FetchNext before any new work.
func (l *List) Reclaim(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.states[key] {
	case StateDispatched:
		l.states[key] = StateReclaimed
		l.reclaimed = append(l.reclaimed, key)
		return nil
	case StateReclaimed:
		return fmt.Errorf("%w: %q", ErrAlreadyReclaimed, key)
	case StateCompleted:
		return fmt.Errorf("%w: %q already handled", ErrNotInFlight, key)
	default:
		return fmt.Errorf("%w: %q was never dispatched", ErrNotInFlight, key)
	}
}

// IsEmpty reports whether no request is immediately fetchable. Work may
// still be outstanding with consumers.
func (l *List) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reclaimed) == 0 && l.cursor >= len(l.requests)
}

// IsFinished reports whether there is no outstanding or pending work at
// all. Strictly stronger than IsEmpty.
func (l *List) IsFinished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending == 0 && l.cursor >= len(l.requests)
}

// Snapshot returns the serializable projection of the mutable queue state.
// The returned value is a copy; callers may not mutate shared state
// through it.
func (l *List) Snapshot() *Snapshot {
	snap, _ := l.SnapshotVersion()
	return snap
}

// SnapshotVersion returns the snapshot together with the state version it
// captures, for use with MarkPersisted.
func (l *List) SnapshotVersion() (*Snapshot, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &Snapshot{Cursor: l.cursor}
	if l.cursor < len(l.requests) {
		snap.NextKey = l.requests[l.cursor].Key
	}

	for key, st := range l.states {
		if st == StateDispatched || st == StateReclaimed {
			snap.InFlight = append(snap.InFlight, key)
		}
	}
	// Sorted so the serialized form is stable run to run.
	sort.Strings(snap.InFlight)

	return snap, l.version
}

// IsDirty reports whether the state has mutated since the last successful
// persist.
func (l *List) IsDirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version != l.persistedVersion
}

// MarkPersisted clears the dirty flag for the given state version. A
// mutation that raced the persist leaves the state dirty so the next
// signal retries.
func (l *List) MarkPersisted(version uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if version == l.version {
		l.persistedVersion = version
	}
}

// Len returns the total number of unique requests in the queue.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// HandledCount returns the number of completed requests.
func (l *List) HandledCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handled
}

// PendingCount returns the number of in-flight requests, reclaimed ones
// included.
func (l *List) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// StateOf returns the lifecycle state of a key. Unknown keys that sit past
// the cursor, or were never loaded, report StateUnseen.
func (l *List) StateOf(key string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[key]
}

// Request returns the loaded request for a key.
func (l *List) Request(key string) (*Request, bool) {
	pos, ok := l.index.Pos(key)
	if !ok {
		return nil, false
	}
	return l.requests[pos], true
}
