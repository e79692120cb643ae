package queue

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// keyIndex maps request keys to their position in the ordered request list.
// A Bloom filter fronts the exact map so membership checks during large
// remote-list imports skip the map lookup for keys that are definitely new.
type keyIndex struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]int
}

// newKeyIndex creates an index sized for the estimated number of requests.
func newKeyIndex(estimatedKeys int) *keyIndex {
	if estimatedKeys < 1000 {
		estimatedKeys = 1000
	}

	return &keyIndex{
		filter: bloom.NewWithEstimates(uint(estimatedKeys), 0.001),
		exact:  make(map[string]int),
	}
}

// Add records key at position pos. It returns false if the key is already
// present; the first occurrence wins.
func (ix *keyIndex) Add(key string, pos int) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.filter.TestString(key) {
		// Possible collision, confirm with the exact map.
		if _, exists := ix.exact[key]; exists {
			return false
		}
	}

	ix.filter.AddString(key)
	ix.exact[key] = pos
	return true
}

// Pos returns the position of key in the request list.
func (ix *keyIndex) Pos(key string) (int, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.filter.TestString(key) {
		return 0, false
	}
	pos, ok := ix.exact[key]
	return pos, ok
}

// Len returns the number of unique keys.
func (ix *keyIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.exact)
}
