package notes

import "time"

// Note is one owner-scoped text note. Tags is never nil once stored.
type Note struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch carries the fields supplied on update. Nil means "leave as is".
type Patch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// Empty reports whether the patch changes nothing but updatedAt.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// Outcome classifies an owner-scoped update.
type Outcome uint8

const (
	// OutcomeNotFoundOrForbidden covers both a missing id and a note owned
	// by someone else; callers cannot tell them apart.
	OutcomeNotFoundOrForbidden Outcome = iota
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	default:
		return "not_found_or_forbidden"
	}
}

// UpdateResult is returned by UpdateOwned. Note is set only when Outcome is
// OutcomeUpdated.
type UpdateResult struct {
	Outcome Outcome
	Note    *Note
}

// DeleteResult is returned by DeleteOwned.
type DeleteResult struct {
	Deleted bool
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func (n Note) clone() Note {
	n.Tags = cloneTags(n.Tags)
	return n
}

func (n Note) hasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
