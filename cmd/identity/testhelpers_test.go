package identity

import (
	"testing"

	"jotter/cmd/security/password"
)

// fastHasher keeps argon2id cheap for unit tests.
func fastHasher() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	cfg.BcryptCost = 4
	return cfg
}

func mustNewCredentials(t *testing.T, store Store) *Credentials {
	t.Helper()

	c, err := NewCredentials(store, fastHasher())
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	return c
}
