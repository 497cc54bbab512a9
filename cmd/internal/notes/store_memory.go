package notes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a mutex-guarded Store for tests and database-less runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Note
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]Note)}
}

func (s *InMemoryStore) Insert(ctx context.Context, n Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ID == "" || n.OwnerID == "" {
		return invalid("notes.Insert", "id and owner are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[n.ID]; exists {
		return invalid("notes.Insert", "duplicate id")
	}
	s.byID[n.ID] = n.clone()
	return nil
}

func (s *InMemoryStore) ListByOwner(ctx context.Context, ownerID, tag string) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Note, 0)
	for _, n := range s.byID {
		if n.OwnerID != ownerID {
			continue
		}
		if tag != "" && !n.hasTag(tag) {
			continue
		}
		out = append(out, n.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) UpdateOwned(ctx context.Context, id, ownerID string, p Patch, now time.Time) (Note, bool, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.OwnerID != ownerID {
		return Note{}, false, nil
	}

	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = cloneTags(*p.Tags)
	}
	n.UpdatedAt = now

	s.byID[id] = n
	return n.clone(), true, nil
}

func (s *InMemoryStore) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.OwnerID != ownerID {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}
