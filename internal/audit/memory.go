package audit

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore implements Store for tests and the smoke binary. Entries are
// kept ordered by id descending, matching the Postgres store's contract.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == entry.ID {
			return ErrInvalidEntry
		}
	}
	s.entries = append(s.entries, cloneEntry(*entry))
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID > s.entries[j].ID })
	return nil
}

func (s *InMemoryStore) Select(ctx context.Context, q Query, limit int, cursor string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, entry := range s.entries {
		if cursor != "" && entry.ID >= cursor {
			continue
		}
		if !matches(entry, q) {
			continue
		}
		out = append(out, cloneEntry(entry))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len reports how many entries the store holds.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(entry Entry, q Query) bool {
	if q.OrgID != "" && entry.OrgID != q.OrgID {
		return false
	}
	if q.UserID != "" && entry.UserID != q.UserID {
		return false
	}
	if q.ActorID != "" && entry.Actor.ID != q.ActorID {
		return false
	}
	if q.Scope != "" && entry.Scope != q.Scope {
		return false
	}
	if q.Key != "" {
		found := false
		for _, c := range entry.Changes {
			if c.Key == q.Key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.Since.IsZero() && entry.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !entry.CreatedAt.Before(q.Until) {
		return false
	}
	return true
}

func cloneEntry(entry Entry) Entry {
	if entry.Changes != nil {
		changes := make([]Change, len(entry.Changes))
		copy(changes, entry.Changes)
		entry.Changes = changes
	}
	return entry
}
