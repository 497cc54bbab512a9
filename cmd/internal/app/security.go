package app

import (
	"errors"
	"fmt"

	"jotter/cmd/security/token"
)

// ValidateSecurityConfig fails startup when the token secret is unusable.
func ValidateSecurityConfig(cfg Config) error {
	if err := cfg.Token.Validate(); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return fmt.Errorf("security policy: %s is missing", token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("security policy: %s is too short (min %d bytes)", token.SecretEnvKey, token.MinSecretBytes)
		default:
			return fmt.Errorf("security policy: %w", err)
		}
	}
	return nil
}
