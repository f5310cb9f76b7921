// Copyright 2026 The Techsewa Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package match

import (
	"container/list"
	"sync"
)

// cacheEntry is one memoized match outcome. Misses are cached too: a miss
// that later becomes a hit (after teach) must be served by invalidation,
// never by skipping the cache.
type cacheEntry struct {
	key     string
	answer  Answer
	ok      bool
	element *list.Element
}

// lruCache is a bounded map with LRU eviction, keyed on the exact match call
// signature. It carries the store version it was filled against; the engine
// clears it wholesale when the version moves.
type lruCache struct {
	maxSize int

	mu      sync.Mutex
	entries map[string]*cacheEntry
	lruList *list.List
	version uint64
}

func newLRUCache(maxSize int) *lruCache {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &lruCache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
	}
}

// get returns the cached outcome for key, refreshing its recency. The second
// return reports whether the key was present at all.
func (c *lruCache) get(key string, version uint64) (Answer, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != version {
		c.clearLocked(version)
		return Answer{}, false, false
	}

	entry, ok := c.entries[key]
	if !ok {
		return Answer{}, false, false
	}
	c.lruList.MoveToFront(entry.element)
	return entry.answer, entry.ok, true
}

// put stores an outcome computed against version. Outcomes computed against
// a superseded version are dropped: they raced a mutation and must not
// survive it. A newer version clears the cache and the write is retained.
func (c *lruCache) put(key string, answer Answer, ok bool, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version < c.version {
		return
	}
	if version > c.version {
		c.clearLocked(version)
	}

	if existing, found := c.entries[key]; found {
		existing.answer = answer
		existing.ok = ok
		c.lruList.MoveToFront(existing.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	entry := &cacheEntry{key: key, answer: answer, ok: ok}
	entry.element = c.lruList.PushFront(entry)
	c.entries[key] = entry
}

// size returns the current number of cached outcomes.
func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) evictLocked() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lruList.Remove(oldest)
}

func (c *lruCache) clearLocked(version uint64) {
	c.entries = make(map[string]*cacheEntry)
	c.lruList = list.New()
	c.version = version
}
