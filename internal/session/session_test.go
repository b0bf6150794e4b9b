package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pii-redaction-engine/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New("SESSION_TEST", "error")
}

func TestMemoryStore_CreateAddGet(t *testing.T) {
	s := NewMemory(time.Hour, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	id, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	if err := s.Add(id, "[EMAIL_ADDRESS_1]", "alice@example.com"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	original, err := s.Get(id, "[EMAIL_ADDRESS_1]")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if original != "alice@example.com" {
		t.Errorf("Get: got %q, want alice@example.com", original)
	}
}

func TestMemoryStore_AddUnknownSession(t *testing.T) {
	s := NewMemory(time.Hour, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	err := s.Add("does-not-exist", "[EMAIL_ADDRESS_1]", "alice@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_GetUnknownPlaceholder(t *testing.T) {
	s := NewMemory(time.Hour, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	id, _ := s.Create()
	if _, err := s.Get(id, "[EMAIL_ADDRESS_1]"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unrecorded placeholder, got %v", err)
	}
}

func TestMemoryStore_GetAll(t *testing.T) {
	s := NewMemory(time.Hour, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	id, _ := s.Create()
	s.Add(id, "[EMAIL_ADDRESS_1]", "alice@example.com") //nolint:errcheck // checked via GetAll below
	s.Add(id, "[US_SSN_1]", "123-45-6789")               //nolint:errcheck

	all, err := s.GetAll(id)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAll: got %d entries, want 2", len(all))
	}
	if all["[EMAIL_ADDRESS_1]"] != "alice@example.com" {
		t.Errorf("unexpected email mapping: %q", all["[EMAIL_ADDRESS_1]"])
	}
}

func TestMemoryStore_ExpiredSessionNotFound(t *testing.T) {
	s := NewMemory(1*time.Millisecond, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	id, _ := s.Create()
	time.Sleep(5 * time.Millisecond)

	if _, err := s.Get(id, "[EMAIL_ADDRESS_1]"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on expired session, got %v", err)
	}
}

func TestMemoryStore_PruneExpired(t *testing.T) {
	s := NewMemory(1*time.Millisecond, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	s.Create() //nolint:errcheck
	s.Create() //nolint:errcheck
	time.Sleep(5 * time.Millisecond)

	s.PruneExpired()
	if s.Size() != 0 {
		t.Errorf("Size after prune: got %d, want 0", s.Size())
	}
}

func TestMemoryStore_SizeReflectsLiveSessions(t *testing.T) {
	s := NewMemory(time.Hour, testLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	s.Create() //nolint:errcheck
	s.Create() //nolint:errcheck
	if s.Size() != 2 {
		t.Errorf("Size: got %d, want 2", s.Size())
	}
}

func TestDurableStore_CreateAddGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	s, err := NewDurable(path, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("NewDurable: %v", err)
	}
	defer s.Close() //nolint:errcheck // test cleanup

	id, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Add(id, "[PHONE_NUMBER_1]", "555-867-5309"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	original, err := s.Get(id, "[PHONE_NUMBER_1]")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if original != "555-867-5309" {
		t.Errorf("Get: got %q", original)
	}
}

func TestDurableStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	s1, err := NewDurable(path, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("open first instance: %v", err)
	}
	id, _ := s1.Create()
	s1.Add(id, "[EMAIL_ADDRESS_1]", "alice@example.com") //nolint:errcheck
	if err := s1.Close(); err != nil {
		t.Fatalf("close first instance: %v", err)
	}

	s2, err := NewDurable(path, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("open second instance: %v", err)
	}
	defer s2.Close() //nolint:errcheck // test cleanup

	original, err := s2.Get(id, "[EMAIL_ADDRESS_1]")
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	if original != "alice@example.com" {
		t.Errorf("Get after restart: got %q", original)
	}
}

func TestDurableStore_PruneExpired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	s, err := NewDurable(path, 1*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewDurable: %v", err)
	}
	defer s.Close() //nolint:errcheck // test cleanup

	s.Create() //nolint:errcheck
	time.Sleep(5 * time.Millisecond)
	s.PruneExpired()

	if s.Size() != 0 {
		t.Errorf("Size after prune: got %d, want 0", s.Size())
	}
}

func TestNew_EmptyPathUsesMemory(t *testing.T) {
	s, err := New("", time.Hour, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close() //nolint:errcheck // test cleanup

	if _, ok := s.(*memoryStore); !ok {
		t.Errorf("expected *memoryStore when path is empty, got %T", s)
	}
}

func TestNew_PathUsesDurable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	s, err := New(path, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close() //nolint:errcheck // test cleanup

	if _, ok := s.(*durableStore); !ok {
		t.Errorf("expected *durableStore when path is set, got %T", s)
	}
}
