package notes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotter/cmd/identity/ids"
)

const (
	ownerA = "01HZZZZZZZZZZZZZZZZZZZZZZA"
	ownerB = "01HZZZZZZZZZZZZZZZZZZZZZZB"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveNoteOp(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op+":"+outcome)
}

func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func newTestRepo(opts ...RepositoryOption) *Repository {
	base := []RepositoryOption{WithClock(steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))}
	return NewRepository(NewInMemoryStore(), append(base, opts...)...)
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo()

	n, err := r.Create(ctx, ownerA, "t", "", []string{"work"})
	require.NoError(t, err)
	assert.True(t, ids.Valid(n.ID))
	assert.Equal(t, ownerA, n.OwnerID)
	assert.Equal(t, []string{"work"}, n.Tags)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	n2, err := r.Create(ctx, ownerA, "second", "body", nil)
	require.NoError(t, err)
	require.NotNil(t, n2.Tags)
	assert.Empty(t, n2.Tags)

	all, err := r.ListByOwner(ctx, ownerA, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, n.ID, all[0].ID)
	assert.Equal(t, n2.ID, all[1].ID)
}

func TestRepository_CreateRequiresTitle(t *testing.T) {
	t.Parallel()

	_, err := newTestRepo().Create(context.Background(), ownerA, "", "c", nil)
	assert.True(t, IsInvalidInput(err))
}

func TestRepository_TagFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo()

	work, err := r.Create(ctx, ownerA, "w", "", []string{"work", "urgent"})
	require.NoError(t, err)
	_, err = r.Create(ctx, ownerA, "h", "", []string{"home"})
	require.NoError(t, err)
	_, err = r.Create(ctx, ownerA, "none", "", nil)
	require.NoError(t, err)

	unfiltered, err := r.ListByOwner(ctx, ownerA, "")
	require.NoError(t, err)
	assert.Len(t, unfiltered, 3)

	got, err := r.ListByOwner(ctx, ownerA, "work")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, work.ID, got[0].ID)

	// Exact membership: no prefix or case folding.
	for _, tag := range []string{"wor", "Work", "garden"} {
		got, err := r.ListByOwner(ctx, ownerA, tag)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got, "tag %q", tag)
	}
}

func TestRepository_OwnershipIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &recordingPublisher{}
	r := newTestRepo(WithPublisher(pub))

	a, err := r.Create(ctx, ownerA, "mine", "secret", []string{"x"})
	require.NoError(t, err)

	listB, err := r.ListByOwner(ctx, ownerB, "")
	require.NoError(t, err)
	assert.Empty(t, listB)

	res, err := r.UpdateOwned(ctx, a.ID, ownerB, Patch{Title: strPtr("stolen")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFoundOrForbidden, res.Outcome)
	assert.Nil(t, res.Note)

	del, err := r.DeleteOwned(ctx, a.ID, ownerB)
	require.NoError(t, err)
	assert.False(t, del.Deleted)

	listA, err := r.ListByOwner(ctx, ownerA, "")
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, "mine", listA[0].Title)
	assert.Equal(t, a.UpdatedAt, listA[0].UpdatedAt)

	assert.Equal(t, []string{EventNoteCreated}, pub.types())
}

func TestRepository_UpdateOwned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo()

	n, err := r.Create(ctx, ownerA, "old", "body", []string{"a"})
	require.NoError(t, err)

	res, err := r.UpdateOwned(ctx, n.ID, ownerA, Patch{Title: strPtr("new")})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, res.Outcome)
	require.NotNil(t, res.Note)
	assert.Equal(t, "new", res.Note.Title)
	assert.Equal(t, "body", res.Note.Content, "omitted fields stay untouched")
	assert.Equal(t, []string{"a"}, res.Note.Tags)
	assert.True(t, res.Note.UpdatedAt.After(n.UpdatedAt))
	assert.Equal(t, n.CreatedAt, res.Note.CreatedAt)

	var clear []string
	res, err = r.UpdateOwned(ctx, n.ID, ownerA, Patch{Content: strPtr(""), Tags: &clear})
	require.NoError(t, err)
	assert.Equal(t, "", res.Note.Content)
	assert.NotNil(t, res.Note.Tags)
	assert.Empty(t, res.Note.Tags)

	_, err = r.UpdateOwned(ctx, n.ID, ownerA, Patch{Title: strPtr("")})
	assert.True(t, IsInvalidInput(err))
}

func TestRepository_UpdateMissingOrMalformed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo()

	for _, id := range []string{"01ARZ3NDEKTSV4RRFFQ69G5FAV", "not-an-id", "", "../etc"} {
		res, err := r.UpdateOwned(ctx, id, ownerA, Patch{Title: strPtr("x")})
		require.NoError(t, err, "id %q", id)
		assert.Equal(t, OutcomeNotFoundOrForbidden, res.Outcome, "id %q", id)
	}
}

func TestRepository_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &recordingPublisher{}
	r := newTestRepo(WithPublisher(pub))

	n, err := r.Create(ctx, ownerA, "gone", "", nil)
	require.NoError(t, err)

	first, err := r.DeleteOwned(ctx, n.ID, ownerA)
	require.NoError(t, err)
	assert.True(t, first.Deleted)

	second, err := r.DeleteOwned(ctx, n.ID, ownerA)
	require.NoError(t, err)
	assert.False(t, second.Deleted)

	malformed, err := r.DeleteOwned(ctx, "nope", ownerA)
	require.NoError(t, err)
	assert.False(t, malformed.Deleted)

	list, err := r.ListByOwner(ctx, ownerA, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []string{EventNoteCreated, EventNoteDeleted}, pub.types())
}

func TestRepository_ReturnedNotesAreCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRepo()

	tags := []string{"a"}
	n, err := r.Create(ctx, ownerA, "t", "", tags)
	require.NoError(t, err)
	tags[0] = "mutated"
	n.Tags[0] = "mutated"

	list, err := r.ListByOwner(ctx, ownerA, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"a"}, list[0].Tags)
}

func TestRepository_Observer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	obs := &recordingObserver{}
	r := newTestRepo(WithObserver(obs))

	n, err := r.Create(ctx, ownerA, "t", "", nil)
	require.NoError(t, err)
	_, _ = r.Create(ctx, ownerA, "", "", nil)
	_, _ = r.ListByOwner(ctx, ownerA, "")
	_, _ = r.UpdateOwned(ctx, n.ID, ownerB, Patch{})
	_, _ = r.DeleteOwned(ctx, n.ID, ownerA)

	assert.Equal(t, []string{
		"create:created",
		"create:invalid",
		"list:ok",
		"update:not_found_or_forbidden",
		"delete:deleted",
	}, obs.ops)
}
