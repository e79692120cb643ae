// Package persist writes queue snapshots to a key/value store, either on a
// timer or on demand. The queue itself never schedules anything: it exposes
// a snapshot accessor and a dirty flag, and the Saver owns the cadence.
package persist

import (
	"encoding/json"

	ferrors "github.com/crawlforge/frontier/internal/errors"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/store"
)

// LoadSnapshot reads and decodes the snapshot stored under key. An absent
// key returns (nil, nil): the run starts fresh. Corrupt-but-present state
// is a fatal configuration error, never silently discarded.
func LoadSnapshot(s store.Store, key string) (*queue.Snapshot, error) {
	data, err := s.Get(key)
	if err != nil {
		return nil, ferrors.NewPersistError(key, "restore", err)
	}
	if data == nil {
		return nil, nil
	}

	var snap queue.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, ferrors.New(ferrors.Config, key, "restore",
			"persisted state is corrupt", err)
	}
	if snap.Cursor < 0 {
		return nil, ferrors.NewConfigErrorf(key, "restore",
			"persisted state has negative cursor %d", snap.Cursor)
	}

	return &snap, nil
}

// SaveSnapshot encodes and stores snap under key.
func SaveSnapshot(s store.Store, key string, snap *queue.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return ferrors.New(ferrors.Persistence, key, "persist",
			"failed to encode state", err)
	}
	if err := s.Set(key, data); err != nil {
		return ferrors.NewPersistError(key, "persist", err)
	}
	return nil
}
