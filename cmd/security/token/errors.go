package token

import "errors"

var (
	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")

	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed encoding, wrong algorithm or issuer, expiry, missing uid.
	ErrInvalidToken = errors.New("invalid token")
)
