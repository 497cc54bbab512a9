package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"jotter/cmd/security/password"
)

const maxUsernameLen = 128

// Credentials registers users and verifies their secrets.
type Credentials struct {
	store     Store
	hasher    password.Config
	dummyHash string
	now       func() time.Time
}

// CredentialsOption configures Credentials.
type CredentialsOption func(*Credentials)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) CredentialsOption {
	return func(c *Credentials) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCredentials binds a Store to a password configuration.
//
// A dummy hash is computed up front so that logins for unknown usernames
// spend the same hashing time as real ones.
func NewCredentials(store Store, hasher password.Config, opts ...CredentialsOption) (*Credentials, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}

	c := &Credentials{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	dummyCfg := hasher
	dummyCfg.Policy = password.Policy{MinLength: 0, MaxLength: 1 << 10}
	h, err := dummyCfg.Hash("jotter-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	c.dummyHash = h

	return c, nil
}

// Register creates a new identity for username with the given raw secret.
func (c *Credentials) Register(ctx context.Context, username, secret string) (User, error) {
	const op = "identity.Register"

	if c == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil credentials"}
	}
	if strings.TrimSpace(username) == "" || secret == "" {
		return User{}, invalid(op, "missing fields")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return User{}, invalid(op, "username too long")
	}

	hash, err := c.hasher.Hash(secret)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort),
			errors.Is(err, password.ErrPasswordTooLong),
			errors.Is(err, password.ErrWeakPassword):
			return User{}, invalid(op, err.Error())
		default:
			return User{}, fmt.Errorf("%s: hash: %w", op, err)
		}
	}

	return c.store.CreateUser(ctx, CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Now:          c.now(),
	})
}

// Verify checks username and secret.
//
// It returns NotFoundError when the username is unknown and an
// ErrUnauthorized OpError when the secret does not match. On success, hashes
// written with another algorithm or outdated cost parameters are re-encoded.
func (c *Credentials) Verify(ctx context.Context, username, secret string) (User, error) {
	const op = "identity.Verify"

	if c == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil credentials"}
	}
	if username == "" || secret == "" {
		return User{}, invalid(op, "missing fields")
	}

	acc, err := c.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			_, _ = c.hasher.Verify(c.dummyHash, secret)
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}

	ok, err := c.hasher.Verify(acc.PasswordHash, secret)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrUnauthorized, Msg: "wrong password"}
	}

	if c.hasher.NeedsRehash(acc.PasswordHash) {
		// Best effort: a failed upgrade leaves the old hash valid.
		if h, herr := c.hasher.Hash(secret); herr == nil {
			_ = c.store.UpdatePasswordHash(ctx, acc.User.ID, h, c.now())
		}
	}

	return acc.User, nil
}

// Lookup returns the public user for id.
func (c *Credentials) Lookup(ctx context.Context, id string) (User, error) {
	if c == nil {
		return User{}, OpError{Op: "identity.Lookup", Kind: ErrInvalidInput, Msg: "nil credentials"}
	}
	return c.store.GetUserByID(ctx, id)
}
