package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketItems = []byte("items")

// BoltDataset is a disk-backed append-only dataset using BoltDB. Records
// are keyed by a monotonically increasing sequence number so iteration
// order matches append order.
type BoltDataset struct {
	db   *bolt.DB
	path string
}

// NewBoltDataset creates a new BoltDB-backed dataset.
func NewBoltDataset(path string) (*BoltDataset, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltDataset{db: db, path: path}, nil
}

// Append encodes and stores one record.
func (d *BoltDataset) Append(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Len returns the number of stored records.
func (d *BoltDataset) Len() (int, error) {
	var count int
	err := d.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketItems); b != nil {
			count = b.Stats().KeyN
		}
		return nil
	})
	return count, err
}

// ForEach calls fn for every record in append order.
func (d *BoltDataset) ForEach(fn func(data []byte) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(v)
		})
	})
}

// Close closes the database.
func (d *BoltDataset) Close() error {
	return d.db.Close()
}
