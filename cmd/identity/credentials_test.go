package identity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotter/cmd/identity/ids"
	"jotter/cmd/security/password"
)

func TestCredentials_RegisterThenVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	u, err := c.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, ids.Valid(u.ID), "id %q", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := c.Verify(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestCredentials_RegisterConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	_, err := c.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = c.Register(ctx, "alice", "different")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var ce ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "username", ce.Field)
}

func TestCredentials_UsernameIsCaseSensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	a, err := c.Register(ctx, "Alice", "pw1")
	require.NoError(t, err)
	b, err := c.Register(ctx, "alice", "pw2")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = c.Verify(ctx, "ALICE", "pw1")
	assert.True(t, IsNotFound(err))
}

func TestCredentials_RegisterInvalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	cases := []struct {
		name, user, pass string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"empty password", "bob", ""},
		{"long username", strings.Repeat("u", maxUsernameLen+1), "pw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Register(ctx, tc.user, tc.pass)
			assert.True(t, IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestCredentials_PolicyViolationIsInvalidInput(t *testing.T) {
	t.Parallel()

	hasher := fastHasher()
	hasher.Policy.MinLength = 8
	c, err := NewCredentials(NewInMemoryStore(), hasher)
	require.NoError(t, err)

	_, err = c.Register(context.Background(), "carol", "short")
	assert.True(t, IsInvalidInput(err), "got %v", err)
}

func TestCredentials_VerifyFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	_, err := c.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = c.Verify(ctx, "nobody", "pw1")
	assert.True(t, IsNotFound(err), "got %v", err)
	assert.False(t, IsUnauthorized(err))

	_, err = c.Verify(ctx, "alice", "wrong")
	assert.True(t, IsUnauthorized(err), "got %v", err)
	assert.False(t, IsNotFound(err))
}

func TestCredentials_VerifyUpgradesLegacyBcrypt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()

	legacy := fastHasher()
	legacy.Algorithm = password.AlgorithmBcrypt
	h, err := legacy.Hash("pw1")
	require.NoError(t, err)

	u, err := store.CreateUser(ctx, CreateUserInput{Username: "imported", PasswordHash: h})
	require.NoError(t, err)

	c := mustNewCredentials(t, store)
	got, err := c.Verify(ctx, "imported", "pw1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	acc, err := store.GetAccountByUsername(ctx, "imported")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(acc.PasswordHash, "$argon2id$"), "hash not upgraded: %q", acc.PasswordHash)

	_, err = c.Verify(ctx, "imported", "pw1")
	require.NoError(t, err)
}

func TestCredentials_VerifyUpgradesOutdatedParams(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewInMemoryStore()

	old := fastHasher()
	h, err := old.Hash("pw1")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, CreateUserInput{Username: "tuned", PasswordHash: h})
	require.NoError(t, err)

	current := fastHasher()
	current.Params.Iterations = 2
	c, err := NewCredentials(store, current)
	require.NoError(t, err)

	_, err = c.Verify(ctx, "tuned", "pw1")
	require.NoError(t, err)

	acc, err := store.GetAccountByUsername(ctx, "tuned")
	require.NoError(t, err)
	assert.NotEqual(t, h, acc.PasswordHash)
	assert.Contains(t, acc.PasswordHash, ",t=2,")
	assert.False(t, current.NeedsRehash(acc.PasswordHash))

	_, err = c.Verify(ctx, "tuned", "pw1")
	require.NoError(t, err)
}

func TestCredentials_ConcurrentRegisterSameUsername(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := mustNewCredentials(t, NewInMemoryStore())

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Register(ctx, "racer", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestCredentials_Clock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := NewCredentials(NewInMemoryStore(), fastHasher(), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	u, err := c.Register(context.Background(), "dave", "pw")
	require.NoError(t, err)
	assert.True(t, u.CreatedAt.Equal(fixed))

	got, err := c.Lookup(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}
