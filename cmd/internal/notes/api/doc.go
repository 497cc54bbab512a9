// Package notesapi exposes the owner-scoped notes API and its WebSocket
// change feed. Every route expects an Identity in the request context.
package notesapi
