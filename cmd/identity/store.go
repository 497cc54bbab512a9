package identity

import (
	"context"
	"time"
)

// User is the public view of a registered identity.
// Username is stored exactly as given (case-sensitive, no normalization).
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Account pairs a user with its stored password hash.
// It must never be serialized outside this package's callers.
type Account struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a new user row. PasswordHash is already encoded.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	// CreateUser persists a user and its credential atomically.
	// Returns ConflictError{Field: "username"} when the username is taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetAccountByUsername looks up by exact username. NotFoundError when absent.
	GetAccountByUsername(ctx context.Context, username string) (Account, error)

	// GetUserByID returns NotFoundError when absent.
	GetUserByID(ctx context.Context, id string) (User, error)

	// UpdatePasswordHash replaces a user's stored hash (used for rehash on login).
	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error
}
