package namedsql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/namedsql/statement"
)

// Cache stores parsed statements between loads, keyed by file path,
// dialect and content hash. Implement it with the store of your choice
// (Redis, Memcached, disk); MemoryCache keeps entries in process.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// cacheKey identifies the parse of one file for one adapter.
type cacheKey struct {
	Tag     string
	Adapter string // adapter fingerprint
	Path    string
	Text    string
}

// String returns the string representation of the cache key. The adapter
// fingerprint and the text are hashed together.
func (k cacheKey) String() string {
	h := sha256.New()
	h.Write([]byte(k.Adapter))
	h.Write([]byte{0})
	h.Write([]byte(k.Text))
	return "namedsql:" + k.Tag + ":" + k.Path + ":" + hex.EncodeToString(h.Sum(nil))
}

func encodeDescriptors(descs []*statement.Descriptor) ([]byte, error) {
	return msgpack.Marshal(descs)
}

func decodeDescriptors(b []byte) ([]*statement.Descriptor, error) {
	var descs []*statement.Descriptor
	if err := msgpack.Unmarshal(b, &descs); err != nil {
		return nil, err
	}
	return descs, nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
