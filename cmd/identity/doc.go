// Package identity owns jotter's registered users and their credentials.
//
// Credentials is the entry point used by the HTTP layer: it validates input,
// hashes secrets through security/password and persists users through a
// Store (Postgres in production, in-memory for tests and local runs).
// Password hashes never leave this package.
package identity
