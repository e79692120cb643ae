package queue

import (
	ferrors "github.com/crawlforge/frontier/internal/errors"
	"github.com/crawlforge/frontier/internal/logger"
)

// Builder accumulates requests during the load phase and produces a ready
// List. The two-phase split keeps every mutating queue operation
// unavailable until loading and snapshot validation have completed.
type Builder struct {
	requests []*Request
	index    *keyIndex
	log      *logger.Logger
}

// NewBuilder creates a builder sized for the estimated request count.
func NewBuilder(estimatedRequests int, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		requests: make([]*Request, 0, estimatedRequests),
		index:    newKeyIndex(estimatedRequests),
		log:      log.WithComponent("queue"),
	}
}

// Add appends a request, deriving its key if empty. It returns false when
// the key is already present; the first occurrence's payload is kept and
// the duplicate is silently dropped.
func (b *Builder) Add(r *Request) (bool, error) {
	if r == nil {
		return false, ferrors.NewConfigError("", "load", "request is nil")
	}

	if r.Key == "" {
		if r.URL == "" {
			return false, ferrors.NewConfigError("", "load", "request has neither key nor url")
		}
		r.Key = ComputeKey(r.Method, r.URL)
	}
	if r.Key == "" {
		return false, ferrors.NewConfigErrorf("", "load", "request %q produced an empty key", r.URL)
	}

	if !b.index.Add(r.Key, len(b.requests)) {
		return false, nil
	}

	b.requests = append(b.requests, r)
	return true, nil
}

// Len returns the number of unique requests added so far.
func (b *Builder) Len() int {
	return len(b.requests)
}

// Build validates snap against the loaded requests and returns the ready
// List. A nil snapshot starts fresh. The builder must not be reused after
// Build.
func (b *Builder) Build(snap *Snapshot) (*List, error) {
	l := &List{
		requests: b.requests,
		index:    b.index,
		states:   make(map[string]State),
	}

	if snap == nil {
		return l, nil
	}

	if snap.Cursor < 0 || snap.Cursor > len(b.requests) {
		return nil, ferrors.NewConfigErrorf("", "restore",
			"snapshot cursor %d out of range [0, %d]", snap.Cursor, len(b.requests))
	}

	if snap.Cursor < len(b.requests) && b.requests[snap.Cursor].Key != snap.NextKey {
		return nil, ferrors.NewConfigErrorf(snap.NextKey, "restore",
			"sources changed since the snapshot was taken: expected key %q at position %d, found %q",
			snap.NextKey, snap.Cursor, b.requests[snap.Cursor].Key)
	}

	l.cursor = snap.Cursor

	// Everything that was in flight when the snapshot was taken is
	// conservatively assumed incomplete and retried before new work. A key
	// that now sits at or past the cursor would be dispatched normally
	// later anyway, so it is dropped with a warning; a key the sources no
	// longer produce at all means the snapshot cannot be trusted.
	seen := make(map[string]struct{}, len(snap.InFlight))
	for _, key := range snap.InFlight {
		if _, dup := seen[key]; dup {
			return nil, ferrors.NewConfigErrorf(key, "restore",
				"snapshot in-flight key %q appears more than once", key)
		}
		seen[key] = struct{}{}

		pos, ok := b.index.Pos(key)
		if !ok {
			return nil, ferrors.NewConfigErrorf(key, "restore",
				"snapshot in-flight key %q does not exist in the loaded sources", key)
		}
		if pos >= snap.Cursor {
			b.log.WithKey(key).Warn("Dropping in-flight key ahead of cursor; it will be dispatched normally")
			continue
		}
		l.states[key] = StateReclaimed
		l.reclaimed = append(l.reclaimed, key)
		l.pending++
	}

	return l, nil
}
