// Package notes stores personal notes scoped to their owning user.
//
// Every read and write goes through an owner id taken from the
// authenticated identity: a note id alone never grants access. Notes owned
// by someone else are indistinguishable from notes that do not exist.
//
// Repository is the domain entry point. It validates input, delegates to a
// Store (Postgres or in-memory) and publishes change events to a Hub that
// backs the per-owner WebSocket feed.
package notes
