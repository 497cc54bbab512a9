package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hash validates password against the policy and encodes it with the
// configured Algorithm.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	switch c.Algorithm {
	case AlgorithmBcrypt:
		return c.hashBcrypt(password)
	case AlgorithmArgon2id, "":
		return c.hashArgon2id(password)
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// Verify checks whether password matches encodedHash.
//
// The scheme is taken from the hash itself, so argon2id and bcrypt hashes
// verify side by side. Returns (true, nil) for a match, (false, nil) for a
// mismatch and (false, ErrInvalidHash) for malformed or unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	switch schemeOf(encodedHash) {
	case AlgorithmArgon2id:
		return c.verifyArgon2id(encodedHash, password)
	case AlgorithmBcrypt:
		return c.verifyBcrypt(encodedHash, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encodedHash should be re-encoded with the
// current configuration: a different algorithm, argon2id parameters that
// differ from Params, or a bcrypt cost that differs from BcryptCost.
// Undecodable hashes report true.
func (c Config) NeedsRehash(encodedHash string) bool {
	want := c.Algorithm
	if want == "" {
		want = AlgorithmArgon2id
	}
	if schemeOf(encodedHash) != want {
		return true
	}

	switch want {
	case AlgorithmArgon2id:
		got, _, _, err := decodeArgon2id(encodedHash)
		if err != nil {
			return true
		}
		return got != c.Params
	case AlgorithmBcrypt:
		cost, err := bcrypt.Cost([]byte(encodedHash))
		if err != nil {
			return true
		}
		return cost != c.bcryptCost()
	}
	return false
}

func schemeOf(encoded string) Algorithm {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return AlgorithmArgon2id
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return AlgorithmBcrypt
	default:
		return ""
	}
}
