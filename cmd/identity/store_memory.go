package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a mutex-guarded Store used when no database is configured
// and in tests. Data is lost on restart.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Account
	byUsername map[string]*Account
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[string]*Account),
		byUsername: make(map[string]*Account),
	}
}

func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.Username == "" {
		return User{}, invalid(op, "username is required")
	}
	if in.PasswordHash == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[in.Username]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	acc := &Account{
		User:         User{ID: id, Username: in.Username, CreatedAt: now.UTC()},
		PasswordHash: in.PasswordHash,
	}
	s.byID[id] = acc
	s.byUsername[in.Username] = acc
	return acc.User, nil
}

func (s *InMemoryStore) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	const op = "identity.GetAccountByUsername"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if username == "" {
		return Account{}, invalid(op, "username is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byUsername[username]
	if !ok {
		return Account{}, NotFoundError{Op: op, Resource: "user"}
	}
	return *acc, nil
}

func (s *InMemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return acc.User, nil
}

func (s *InMemoryStore) UpdatePasswordHash(ctx context.Context, userID, hash string, _ time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" || hash == "" {
		return invalid(op, "user id and hash are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	acc.PasswordHash = hash
	return nil
}
