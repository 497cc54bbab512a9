package notes

import (
	"context"
	"time"
)

// Store is the note persistence boundary. Every mutating call is a single
// atomic statement filtered by both id and owner.
type Store interface {
	Insert(ctx context.Context, n Note) error

	// ListByOwner returns the owner's notes ordered by (created_at, id).
	// An empty tag means no tag filter.
	ListByOwner(ctx context.Context, ownerID, tag string) ([]Note, error)

	// UpdateOwned applies p to the note matching (id, ownerID) and returns it.
	// ok is false when nothing matched; no error is returned in that case.
	UpdateOwned(ctx context.Context, id, ownerID string, p Patch, now time.Time) (n Note, ok bool, err error)

	// DeleteOwned removes at most one note matching (id, ownerID).
	DeleteOwned(ctx context.Context, id, ownerID string) (bool, error)
}
