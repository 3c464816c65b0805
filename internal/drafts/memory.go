package drafts

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	draft     json.RawMessage
	expiresAt time.Time
}

// MemoryStore keeps drafts in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore constructs a MemoryStore. A zero ttl keeps drafts until cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key Key) (json.RawMessage, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key.String())
		return nil, false, nil
	}
	return append(json.RawMessage(nil), entry.draft...), true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key Key, draft json.RawMessage) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := validateDraft(draft); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{draft: append(json.RawMessage(nil), draft...)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key.String()] = entry
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}
