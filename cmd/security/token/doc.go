// Package token issues and verifies the bearer credentials handed out by
// POST /login.
//
// Tokens are HS256 JWTs carrying the user id (uid), issued-at (iat) and
// issuer (iss) claims, signed with a server-held symmetric secret. They are
// stateless: verification needs only the secret and the token bytes.
// Expiry is off unless a TTL is configured.
//
// Environment:
//   - JOTTER_TOKEN_SECRET: signing secret, at least MinSecretBytes long.
//   - JOTTER_TOKEN_ISSUER: iss claim, checked on verify.
//   - JOTTER_TOKEN_TTL: optional lifetime (Go duration); 0 disables exp.
package token
