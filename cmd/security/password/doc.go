// Package password hashes and verifies account passwords for jotter.
//
// New hashes use Argon2id in the PHC string format by default; bcrypt
// ($2a$/$2b$/$2y$) can be selected for new hashes and is always accepted on
// verify, so credentials imported from older deployments keep working.
//
// Stored hashes are treated as untrusted input: Verify refuses cost
// parameters that exceed the configured ones by a wide margin.
package password
