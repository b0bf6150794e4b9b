package generative

import (
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"pii-redaction-engine/internal/logger"
)

const responseCacheBucket = "generative_responses"

// kvStore is the minimal string→string persistence contract the response
// cache is built on, one level down from a typed cache: it stores an opaque
// JSON blob per key instead of a single token, since a cached entry is a
// whole candidate list rather than one replacement value.
type kvStore interface {
	Get(key string) (value string, ok bool)
	Set(key, value string)
	Delete(key string)
	Close() error
}

// memoryKV is a mutex-guarded in-memory kvStore, safe for the concurrent
// Review calls and the asynchronous S3-FIFO eviction deletes that reach it.
// It is used when no cache file is configured.
type memoryKV struct {
	mu    sync.Mutex
	store map[string]string
}

func newMemoryKV() kvStore {
	return &memoryKV{store: make(map[string]string)}
}

func (c *memoryKV) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}

func (c *memoryKV) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

func (c *memoryKV) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

func (c *memoryKV) Close() error { return nil }

// bboltKV is a kvStore backed by an embedded bbolt database, so cached
// generative-reviewer responses survive process restarts.
type bboltKV struct {
	db *bolt.DB
}

func newBboltKV(path string) (kvStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open generative cache %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(responseCacheBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create generative cache bucket: %w", err)
	}
	return &bboltKV{db: db}, nil
}

func (c *bboltKV) Get(key string) (string, bool) {
	var value string
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(responseCacheBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, value != ""
}

func (c *bboltKV) Set(key, value string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(responseCacheBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", responseCacheBucket)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (c *bboltKV) Delete(key string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(responseCacheBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (c *bboltKV) Close() error {
	return c.db.Close()
}

// responseCache stores the raw candidate list produced for a given input
// text, keyed by a hash of the text, so repeated review calls over
// previously-seen text (a common case across a session's back-and-forth)
// skip the round trip entirely. It is a thin JSON layer over a kvStore —
// either a bare memoryKV, or a bboltKV bounded by an S3-FIFO hot layer
// (see s3fifo.go) when a cache file is configured.
type responseCache struct {
	kv kvStore
}

func newResponseCache(cachePath string, capacity int, log *logger.Logger) responseCache {
	if cachePath == "" {
		return responseCache{kv: newMemoryKV()}
	}
	backing, err := newBboltKV(cachePath)
	if err != nil {
		if log != nil {
			log.Warnf("init", "generative response cache unavailable, using memory: %v", err)
		}
		return responseCache{kv: newMemoryKV()}
	}
	if capacity <= 0 {
		return responseCache{kv: backing}
	}
	return responseCache{kv: newS3FIFOCache(backing, capacity, log)}
}

func (c responseCache) Get(key string) ([]Candidate, bool) {
	raw, ok := c.kv.Get(key)
	if !ok {
		return nil, false
	}
	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, false
	}
	return candidates, true
}

func (c responseCache) Set(key string, candidates []Candidate) {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	c.kv.Set(key, string(raw))
}

func (c responseCache) Close() error {
	return c.kv.Close()
}
