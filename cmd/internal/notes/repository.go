package notes

import (
	"context"
	"strings"
	"time"

	"jotter/cmd/identity/ids"
)

// Observer receives per-operation outcomes (metrics).
type Observer interface {
	ObserveNoteOp(op, outcome string, elapsed time.Duration)
}

// Repository is the owner-scoped note API used by HTTP handlers.
type Repository struct {
	store    Store
	pub      Publisher
	observer Observer
	now      func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithPublisher sends change events to p after successful mutations.
func WithPublisher(p Publisher) RepositoryOption {
	return func(r *Repository) { r.pub = p }
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) RepositoryOption {
	return func(r *Repository) { r.observer = o }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository wraps store.
func NewRepository(store Store, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Create stores a new note owned by ownerID. Title must be non-empty.
func (r *Repository) Create(ctx context.Context, ownerID, title, content string, tags []string) (note Note, err error) {
	const op = "notes.Create"
	defer r.observe("create", time.Now(), func() string { return outcomeOf(err, "created") })

	if strings.TrimSpace(ownerID) == "" {
		return Note{}, invalid(op, "owner is required")
	}
	if title == "" {
		return Note{}, invalid(op, "title is required")
	}

	now := r.timestamp()
	id, err := ids.NewULID(now)
	if err != nil {
		return Note{}, err
	}

	n := Note{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Tags:      cloneTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Insert(ctx, n); err != nil {
		return Note{}, err
	}

	r.publish(EventNoteCreated, n.ID, ownerID, &n, now)
	return n, nil
}

// ListByOwner returns ownerID's notes, filtered by exact tag membership when
// tag is non-empty. Nothing matching yields an empty slice.
func (r *Repository) ListByOwner(ctx context.Context, ownerID, tag string) (out []Note, err error) {
	defer r.observe("list", time.Now(), func() string { return outcomeOf(err, "ok") })

	if strings.TrimSpace(ownerID) == "" {
		return []Note{}, nil
	}
	out, err = r.store.ListByOwner(ctx, ownerID, tag)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Note{}
	}
	return out, nil
}

// UpdateOwned applies p to the note identified by (noteID, ownerID).
// A missing, foreign or malformed id yields OutcomeNotFoundOrForbidden with
// no error and no mutation. An explicitly empty title is invalid input.
func (r *Repository) UpdateOwned(ctx context.Context, noteID, ownerID string, p Patch) (res UpdateResult, err error) {
	const op = "notes.UpdateOwned"
	defer r.observe("update", time.Now(), func() string { return outcomeOf(err, res.Outcome.String()) })

	if p.Title != nil && *p.Title == "" {
		return UpdateResult{}, invalid(op, "title must not be empty")
	}
	if !ids.Valid(noteID) || strings.TrimSpace(ownerID) == "" {
		return UpdateResult{Outcome: OutcomeNotFoundOrForbidden}, nil
	}
	if p.Tags != nil && *p.Tags == nil {
		empty := []string{}
		p.Tags = &empty
	}

	now := r.timestamp()
	n, ok, err := r.store.UpdateOwned(ctx, noteID, ownerID, p, now)
	if err != nil {
		return UpdateResult{}, err
	}
	if !ok {
		return UpdateResult{Outcome: OutcomeNotFoundOrForbidden}, nil
	}

	r.publish(EventNoteUpdated, n.ID, ownerID, &n, now)
	return UpdateResult{Outcome: OutcomeUpdated, Note: &n}, nil
}

// DeleteOwned removes the note identified by (noteID, ownerID) if it exists.
// Repeating the call is harmless.
func (r *Repository) DeleteOwned(ctx context.Context, noteID, ownerID string) (res DeleteResult, err error) {
	defer r.observe("delete", time.Now(), func() string {
		if res.Deleted {
			return outcomeOf(err, "deleted")
		}
		return outcomeOf(err, "noop")
	})

	if !ids.Valid(noteID) || strings.TrimSpace(ownerID) == "" {
		return DeleteResult{}, nil
	}

	deleted, err := r.store.DeleteOwned(ctx, noteID, ownerID)
	if err != nil {
		return DeleteResult{}, err
	}
	if deleted {
		r.publish(EventNoteDeleted, noteID, ownerID, nil, r.timestamp())
	}
	return DeleteResult{Deleted: deleted}, nil
}

// timestamp is truncated to microseconds so in-memory and Postgres stores
// agree on stored values.
func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func (r *Repository) publish(typ, noteID, ownerID string, n *Note, at time.Time) {
	if r.pub == nil {
		return
	}
	var cp *Note
	if n != nil {
		c := n.clone()
		cp = &c
	}
	r.pub.Publish(Event{Type: typ, OwnerID: ownerID, NoteID: noteID, Note: cp, At: at})
}

func (r *Repository) observe(op string, start time.Time, outcome func() string) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveNoteOp(op, outcome(), time.Since(start))
}

func outcomeOf(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case IsInvalidInput(err):
		return "invalid"
	default:
		return "error"
	}
}
