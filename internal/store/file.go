package store

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore implements Store using one file per key under a directory.
type FileStore struct {
	dir        string
	compressed bool
}

// NewFileStore creates a new file-based store rooted at dir.
func NewFileStore(dir string, compressed bool) *FileStore {
	return &FileStore{
		dir:        dir,
		compressed: compressed,
	}
}

// keyPath maps a key to a filename. Keys are escaped so persist keys that
// look like URLs or paths stay within the store directory.
func (s *FileStore) keyPath(key string) string {
	name := url.PathEscape(key) + ".json"
	if s.compressed {
		name += ".gz"
	}
	return filepath.Join(s.dir, name)
}

// Get returns the value for key, or (nil, nil) if absent.
func (s *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if !s.compressed {
		return data, nil
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %q: %w", key, err)
	}
	defer gr.Close()

	return io.ReadAll(gr)
}

// Set durably stores value under key. The write goes through a temp file
// and rename so a crash mid-write never leaves a truncated value behind.
func (s *FileStore) Set(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if s.compressed {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(value); err != nil {
			return err
		}
		if err := gw.Close(); err != nil {
			return err
		}
		value = buf.Bytes()
	}

	path := s.keyPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}
