// Package session holds the reversible placeholder→original mappings
// produced by a redaction pass, scoped by session id and TTL.
//
// Two implementations are provided:
//   - memoryStore — process-lifetime, in-memory, used by default.
//   - durableStore — embedded key-value store (bbolt), used when a path is
//     configured, so mappings survive process restarts.
//
// Both are safe for concurrent use. Expiry is enforced lazily: an expired
// session is treated as not-found on first access after its deadline and is
// physically removed either then or by an explicit PruneExpired call.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"pii-redaction-engine/internal/logger"
)

// ErrNotFound is returned by Get and GetAll when the session id is unknown
// or has expired.
var ErrNotFound = errors.New("session: not found")

// Store is the reverse-mapping store used by the detection engine to record
// placeholder→original substitutions and later reverse them.
type Store interface {
	// Create mints a new session id and registers an empty mapping set for it.
	Create() (sessionID string, err error)

	// Add records that placeholder stands for original within sessionID.
	// The session must already exist (via Create); Add on an unknown id is
	// an error rather than an implicit create, so a caller can never record
	// a mapping under an id whose lifetime it doesn't control.
	Add(sessionID, placeholder, original string) error

	// Get returns the original value for placeholder within sessionID.
	Get(sessionID, placeholder string) (original string, err error)

	// GetAll returns the full placeholder→original map for sessionID.
	GetAll(sessionID string) (mappings map[string]string, err error)

	// PruneExpired removes sessions whose TTL has elapsed. Implementations
	// also apply this check lazily on Get/GetAll, so calling this is an
	// optimization (bounding memory/disk growth), not a correctness
	// requirement.
	PruneExpired()

	// Size reports the number of live (non-expired) sessions.
	Size() int

	// Close releases any resources held by the store.
	Close() error
}

type sessionRecord struct {
	Mappings  map[string]string
	ExpiresAt time.Time
}

func (r sessionRecord) expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// --- memoryStore ---------------------------------------------------------

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]sessionRecord
	ttl      time.Duration
	log      *logger.Logger
}

// NewMemory returns a process-lifetime, in-memory Store. Each session's
// mapping set expires ttl after it was created.
func NewMemory(ttl time.Duration, log *logger.Logger) Store {
	return &memoryStore{
		sessions: make(map[string]sessionRecord),
		ttl:      ttl,
		log:      log,
	}
}

func (s *memoryStore) Create() (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = sessionRecord{
		Mappings:  make(map[string]string),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return id, nil
}

func (s *memoryStore) Add(sessionID, placeholder, original string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok || rec.expired(time.Now()) {
		delete(s.sessions, sessionID)
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	rec.Mappings[placeholder] = original
	s.sessions[sessionID] = rec
	return nil
}

func (s *memoryStore) Get(sessionID, placeholder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok || rec.expired(time.Now()) {
		delete(s.sessions, sessionID)
		return "", fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	original, ok := rec.Mappings[placeholder]
	if !ok {
		return "", fmt.Errorf("session %s placeholder %s: %w", sessionID, placeholder, ErrNotFound)
	}
	return original, nil
}

func (s *memoryStore) GetAll(sessionID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok || rec.expired(time.Now()) {
		delete(s.sessions, sessionID)
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	out := make(map[string]string, len(rec.Mappings))
	for k, v := range rec.Mappings {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) PruneExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, rec := range s.sessions {
		if rec.expired(now) {
			delete(s.sessions, id)
			pruned++
		}
	}
	if pruned > 0 && s.log != nil {
		s.log.Debugf("prune_expired", "removed %d expired session(s)", pruned)
	}
}

func (s *memoryStore) Size() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.sessions {
		if !rec.expired(now) {
			n++
		}
	}
	return n
}

func (s *memoryStore) Close() error { return nil }

// --- durableStore ----------------------------------------------------------

const sessionBucket = "sessions"

// durableStore is a Store backed by an embedded bbolt database. Each session
// is stored as a single JSON-encoded record keyed by its id, so restarting
// the host process does not lose in-flight un-redaction capability.
type durableStore struct {
	db  *bolt.DB
	ttl time.Duration
	log *logger.Logger
}

// NewDurable opens (or creates) a bbolt database at path for session storage.
func NewDurable(path string, ttl time.Duration, log *logger.Logger) (Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open session store %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create session bucket: %w", err)
	}
	if log != nil {
		log.Infof("init", "durable session store opened at %s", path)
	}
	return &durableStore{db: db, ttl: ttl, log: log}, nil
}

func (s *durableStore) Create() (string, error) {
	id := uuid.NewString()
	rec := sessionRecord{
		Mappings:  make(map[string]string),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.put(id, rec); err != nil {
		return "", err
	}
	return id, nil
}

func (s *durableStore) Add(sessionID, placeholder, original string) error {
	rec, err := s.get(sessionID)
	if err != nil {
		return err
	}
	rec.Mappings[placeholder] = original
	return s.put(sessionID, rec)
}

func (s *durableStore) Get(sessionID, placeholder string) (string, error) {
	rec, err := s.get(sessionID)
	if err != nil {
		return "", err
	}
	original, ok := rec.Mappings[placeholder]
	if !ok {
		return "", fmt.Errorf("session %s placeholder %s: %w", sessionID, placeholder, ErrNotFound)
	}
	return original, nil
}

func (s *durableStore) GetAll(sessionID string) (map[string]string, error) {
	rec, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return rec.Mappings, nil
}

func (s *durableStore) PruneExpired() {
	now := time.Now()
	var expired [][]byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec sessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil //nolint:nilerr // skip unparseable record, don't abort the scan
			}
			if rec.expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if len(expired) == 0 {
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && s.log != nil {
		s.log.Warnf("prune_expired", "bbolt prune error: %v", err)
		return
	}
	if s.log != nil {
		s.log.Debugf("prune_expired", "removed %d expired session(s)", len(expired))
	}
}

func (s *durableStore) Size() int {
	s.PruneExpired()
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	})
	return n
}

func (s *durableStore) Close() error {
	return s.db.Close()
}

func (s *durableStore) get(sessionID string) (sessionRecord, error) {
	var rec sessionRecord
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(sessionID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return sessionRecord{}, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if !found || rec.expired(time.Now()) {
		return sessionRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return rec, nil
}

func (s *durableStore) put(sessionID string, rec sessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", sessionBucket)
		}
		return b.Put([]byte(sessionID), data)
	})
}

// New returns the Store configured by path: a durable bbolt store when path
// is non-empty, otherwise the default in-memory store. This is the
// convenience constructor referenced by the engine's wiring; either
// implementation can also be constructed directly for tests.
func New(path string, ttl time.Duration, log *logger.Logger) (Store, error) {
	if path == "" {
		return NewMemory(ttl, log), nil
	}
	store, err := NewDurable(path, ttl, log)
	if err != nil {
		if log != nil {
			log.Warnf("init", "durable session store unavailable, falling back to memory: %v", err)
		}
		return NewMemory(ttl, log), nil
	}
	return store, nil
}
