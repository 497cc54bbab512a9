package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig keeps argon2id cheap enough for unit tests.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.BcryptCost = 4
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmArgon2id, AlgorithmBcrypt} {
		t.Run(string(algo), func(t *testing.T) {
			cfg := fastConfig()
			cfg.Algorithm = algo

			h, err := cfg.Hash("pw1")
			if err != nil {
				t.Fatalf("Hash error: %v", err)
			}
			if schemeOf(h) != algo {
				t.Fatalf("unexpected scheme for %q", h)
			}

			ok, err := cfg.Verify(h, "pw1")
			if err != nil {
				t.Fatalf("Verify error: %v", err)
			}
			if !ok {
				t.Fatalf("expected match")
			}

			ok, err = cfg.Verify(h, "pw2")
			if err != nil {
				t.Fatalf("Verify error: %v", err)
			}
			if ok {
				t.Fatalf("expected mismatch")
			}
		})
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	cfg := fastConfig()

	a, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct hashes for the same input")
	}
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	legacy := fastConfig()
	legacy.Algorithm = AlgorithmBcrypt
	h, err := legacy.Hash("secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	current := fastConfig()
	ok, err := current.Verify(h, "secret")
	if err != nil || !ok {
		t.Fatalf("expected bcrypt hash to verify under argon2id config: ok=%v err=%v", ok, err)
	}
	if !current.NeedsRehash(h) {
		t.Fatalf("expected NeedsRehash for bcrypt hash")
	}
}

func TestNeedsRehash_Params(t *testing.T) {
	base := fastConfig()
	h, err := base.Hash("secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if base.NeedsRehash(h) {
		t.Fatalf("hash written with the current params must not need a rehash")
	}

	cases := map[string]func(*Config){
		"iterations":  func(c *Config) { c.Params.Iterations = 2 },
		"memory":      func(c *Config) { c.Params.MemoryKiB = 12 * 1024 },
		"parallelism": func(c *Config) { c.Params.Parallelism++ },
		"salt length": func(c *Config) { c.Params.SaltLength = 24 },
		"key length":  func(c *Config) { c.Params.KeyLength = 48 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			if !cfg.NeedsRehash(h) {
				t.Fatalf("expected NeedsRehash after %s change", name)
			}
		})
	}

	if !base.NeedsRehash("$argon2id$garbage") {
		t.Fatalf("expected NeedsRehash for an undecodable hash")
	}
}

func TestNeedsRehash_BcryptCost(t *testing.T) {
	cfg := fastConfig()
	cfg.Algorithm = AlgorithmBcrypt
	h, err := cfg.Hash("secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if cfg.NeedsRehash(h) {
		t.Fatalf("hash written with the current cost must not need a rehash")
	}

	cfg.BcryptCost = 5
	if !cfg.NeedsRehash(h) {
		t.Fatalf("expected NeedsRehash after cost change")
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidate_DefaultRejectsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(""); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := cfg.Hash(""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected Hash to enforce policy, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := fastConfig()

	for _, h := range []string{
		"not-a-hash",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=999999999,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$2b$99$invalid",
	} {
		ok, err := cfg.Verify(h, "whatever")
		if err != ErrInvalidHash {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", h, err)
		}
		if ok {
			t.Fatalf("%q: expected false", h)
		}
	}
}

func TestHash_BcryptInputLimit(t *testing.T) {
	cfg := fastConfig()
	cfg.Algorithm = AlgorithmBcrypt

	if _, err := cfg.Hash(strings.Repeat("a", 73)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.RejectVeryWeak = true
	cfg.Policy.MinLength = 6

	for _, weak := range []string{"password", "11111111", "123456", "zzzzzz", "  qwerty  "} {
		if err := cfg.Validate(weak); err != ErrWeakPassword {
			t.Fatalf("%q: expected ErrWeakPassword, got %v", weak, err)
		}
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
