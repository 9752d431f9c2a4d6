package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// CacheDB buffers writes on top of a parent database. Reads fall through to
// the parent for keys the overlay has not touched. Nothing reaches the parent
// until Commit.
type CacheDB struct {
	parent  Database
	mu      sync.RWMutex
	puts    map[string][]byte
	deletes map[string]struct{}
}

// NewCacheDB wraps parent in a write overlay.
func NewCacheDB(parent Database) *CacheDB {
	return &CacheDB{
		parent:  parent,
		puts:    make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.deletes, k)
	c.puts[k] = append([]byte(nil), value...)
	return nil
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	k := string(key)
	if v, ok := c.puts[k]; ok {
		c.mu.RUnlock()
		return append([]byte(nil), v...), nil
	}
	if _, ok := c.deletes[k]; ok {
		c.mu.RUnlock()
		return nil, ErrNotFound
	}
	c.mu.RUnlock()
	return c.parent.Get(key)
}

func (c *CacheDB) Has(key []byte) (bool, error) {
	c.mu.RLock()
	k := string(key)
	if _, ok := c.puts[k]; ok {
		c.mu.RUnlock()
		return true, nil
	}
	if _, ok := c.deletes[k]; ok {
		c.mu.RUnlock()
		return false, nil
	}
	c.mu.RUnlock()
	return c.parent.Has(key)
}

func (c *CacheDB) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.puts, k)
	c.deletes[k] = struct{}{}
	return nil
}

// Iterate merges the overlay with the parent view.
func (c *CacheDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	if err := c.parent.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	c.mu.RLock()
	for k := range c.deletes {
		delete(merged, k)
	}
	for k, v := range c.puts {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = append([]byte(nil), v...)
		}
	}
	c.mu.RUnlock()
	for _, k := range sortedKeys(merged, prefix) {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

// Dirty reports whether the overlay holds uncommitted writes.
func (c *CacheDB) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.puts) > 0 || len(c.deletes) > 0
}

// Commit flushes the overlay into the parent. Parents implementing Batcher
// receive every write in one atomic batch.
func (c *CacheDB) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.parent.(Batcher); ok {
		if err := b.WriteBatch(c.puts, c.deletes); err != nil {
			return err
		}
	} else {
		for k := range c.deletes {
			if err := c.parent.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, v := range c.puts {
			if err := c.parent.Put([]byte(k), v); err != nil {
				return err
			}
		}
	}
	c.puts = make(map[string][]byte)
	c.deletes = make(map[string]struct{})
	return nil
}

// Discard drops every buffered write.
func (c *CacheDB) Discard() {
	c.mu.Lock()
	c.puts = make(map[string][]byte)
	c.deletes = make(map[string]struct{})
	c.mu.Unlock()
}

// Close is a no-op; the parent owns the underlying handle.
func (c *CacheDB) Close() {}

func sortedKeys(m map[string][]byte, prefix []byte) []string {
	p := string(prefix)
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
