// s3fifo.go bounds the response cache's hot in-memory footprint (and,
// transitively, its on-disk bbolt footprint) with an S3-FIFO eviction
// layer, generalized over an arbitrary kvStore so it can front the
// generative reviewer's key→JSON-candidate-list cache.
//
// # Algorithm
//
// S3-FIFO ("Simple, Scalable, FIFO-based cache eviction", Yang et al., 2023)
// uses two FIFO queues and a bounded ghost set:
//
//   - S (small, ~10% of capacity): probationary queue. All new keys land here.
//   - M (main, ~90% of capacity): protected queue. Keys promoted from S after
//     at least one access (freq > 0) land here.
//   - G (ghost): a circular-buffer set of keys recently evicted from S,
//     bounded to 2x sTarget, but never fewer than 4 keys. A key found in G on insert bypasses S and goes
//     directly to M.
//
// Per-object state: saturating frequency counter (uint8, max 3), incremented
// on every Get hit, reset to 0 on M promotion.
//
// Items evicted from either queue are deleted from the backing kvStore so
// on-disk size stays bounded. On restart the in-memory layer is cold; reads
// fall back to the backing store and re-warm the hot set organically.
package generative

import (
	"container/list"
	"sync"

	"pii-redaction-engine/internal/logger"
)

// s3fifoEntry holds the in-memory state for a single cached item.
type s3fifoEntry struct {
	value string
	freq  uint8
	elem  *list.Element
	inM   bool
}

// s3fifoCache wraps a kvStore with an S3-FIFO in-memory eviction layer.
type s3fifoCache struct {
	mu sync.Mutex

	capacity int
	sTarget  int
	ghostCap int

	entries map[string]*s3fifoEntry
	sQueue  *list.List
	mQueue  *list.List

	ghostBuf   []string
	ghostSet   map[string]struct{}
	ghostHead  int
	ghostCount int

	backing kvStore
	log     *logger.Logger
}

// newS3FIFOCache returns a kvStore that applies S3-FIFO eviction in front of
// backing. capacity is the maximum number of items kept in memory (and on
// disk); values below 2 are clamped to 2.
func newS3FIFOCache(backing kvStore, capacity int, log *logger.Logger) kvStore {
	if capacity < 2 {
		capacity = 2
	}
	sTarget := capacity / 10
	if sTarget < 1 {
		sTarget = 1
	}
	ghostCap := 2 * sTarget
	if ghostCap < 4 {
		ghostCap = 4
	}
	if log != nil {
		log.Debugf("cache", "S3-FIFO response cache capacity=%d sTarget=%d ghostCap=%d", capacity, sTarget, ghostCap)
	}
	return &s3fifoCache{
		capacity: capacity,
		sTarget:  sTarget,
		ghostCap: ghostCap,
		entries:  make(map[string]*s3fifoEntry, capacity),
		sQueue:   list.New(),
		mQueue:   list.New(),
		ghostBuf: make([]string, ghostCap),
		ghostSet: make(map[string]struct{}, ghostCap),
		backing:  backing,
		log:      log,
	}
}

// Get returns the value for key. A memory hit bumps the frequency counter; a
// memory miss falls through to the backing store and, on a backing hit,
// re-warms the entry into memory.
func (c *s3fifoCache) Get(key string) (string, bool) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.freq < 3 {
			e.freq++
		}
		v := e.value
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	value, ok := c.backing.Get(key)
	if !ok {
		return "", false
	}
	c.insert(key, value)
	return value, true
}

// Set stores key → value in memory and in the backing store. An existing
// in-memory entry is updated in place without changing its queue position.
func (c *s3fifoCache) Set(key, value string) {
	c.insert(key, value)
	c.backing.Set(key, value)
}

// Delete removes key from memory and from the backing store.
func (c *s3fifoCache) Delete(key string) {
	c.mu.Lock()
	c.removeFromMemory(key)
	c.mu.Unlock()
	c.backing.Delete(key)
}

// Close closes the backing store. In-memory state is discarded.
func (c *s3fifoCache) Close() error {
	return c.backing.Close()
}

func (c *s3fifoCache) insert(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		return
	}

	inM := c.ghostContains(key)
	var elem *list.Element
	if inM {
		elem = c.mQueue.PushBack(key)
	} else {
		elem = c.sQueue.PushBack(key)
	}
	c.entries[key] = &s3fifoEntry{value: value, freq: 0, elem: elem, inM: inM}

	for c.sQueue.Len()+c.mQueue.Len() > c.capacity {
		c.evictOne()
	}
}

// evictOne must be called with c.mu held.
func (c *s3fifoCache) evictOne() {
	if c.sQueue.Len() > 0 {
		c.evictFromS()
		return
	}
	c.evictFromM()
}

// evictFromS must be called with c.mu held.
func (c *s3fifoCache) evictFromS() {
	front := c.sQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.sQueue.Remove(front)
		return
	}
	c.sQueue.Remove(front)

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if e.freq > 0 {
		e.freq = 0
		e.inM = true
		e.elem = c.mQueue.PushBack(key)
		mTarget := c.capacity - c.sTarget
		if c.mQueue.Len() > mTarget {
			c.evictFromM()
		}
	} else {
		delete(c.entries, key)
		c.ghostAdd(key)
		go c.backing.Delete(key)
	}
}

// evictFromM must be called with c.mu held.
func (c *s3fifoCache) evictFromM() {
	front := c.mQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.mQueue.Remove(front)
		return
	}
	c.mQueue.Remove(front)
	delete(c.entries, key)
	go c.backing.Delete(key)
}

// removeFromMemory must be called with c.mu held.
func (c *s3fifoCache) removeFromMemory(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.inM {
		c.mQueue.Remove(e.elem)
	} else {
		c.sQueue.Remove(e.elem)
	}
	delete(c.entries, key)
}

// ghostContains must be called with c.mu held.
func (c *s3fifoCache) ghostContains(key string) bool {
	_, ok := c.ghostSet[key]
	return ok
}

// ghostAdd must be called with c.mu held.
func (c *s3fifoCache) ghostAdd(key string) {
	if _, exists := c.ghostSet[key]; exists {
		return
	}
	if c.ghostCount == c.ghostCap {
		oldest := c.ghostBuf[c.ghostHead]
		delete(c.ghostSet, oldest)
		c.ghostHead = (c.ghostHead + 1) % c.ghostCap
		c.ghostCount--
	}
	writeIdx := (c.ghostHead + c.ghostCount) % c.ghostCap
	c.ghostBuf[writeIdx] = key
	c.ghostSet[key] = struct{}{}
	c.ghostCount++
}
