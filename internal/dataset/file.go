package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileDataset is an append-only dataset writing one JSON record per line.
type FileDataset struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	n    int
}

// NewFileDataset opens or creates a JSON-lines dataset at path. Existing
// records are preserved; appends continue after them.
func NewFileDataset(path string) (*FileDataset, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	// Count existing records so Len stays accurate across restarts.
	n := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	return &FileDataset{
		file: file,
		w:    bufio.NewWriter(file),
		n:    n,
	}, nil
}

// Append encodes and stores one record.
func (d *FileDataset) Append(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.w.Write(data); err != nil {
		return err
	}
	if err := d.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := d.w.Flush(); err != nil {
		return err
	}

	d.n++
	return nil
}

// Len returns the number of stored records.
func (d *FileDataset) Len() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n, nil
}

// Close flushes and closes the file.
func (d *FileDataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.w.Flush(); err != nil {
		d.file.Close()
		return err
	}
	return d.file.Close()
}
