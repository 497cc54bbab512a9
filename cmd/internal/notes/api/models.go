package notesapi

import (
	"encoding/json"
	"time"

	"jotter/cmd/internal/notes"
)

type createRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// updateRequest keeps absent fields nil so they are left untouched.
type updateRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (u updateRequest) patch() notes.Patch {
	return notes.Patch{Title: u.Title, Content: u.Content, Tags: u.Tags}
}

type noteResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toNoteResponse(n notes.Note) noteResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return noteResponse{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toNoteResponses(ns []notes.Note) []noteResponse {
	out := make([]noteResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, toNoteResponse(n))
	}
	return out
}

// ---- feed wire format ----

const (
	feedVersion = 1

	feedTypeReady = "feed.ready"
	feedTypeError = "error"
)

type feedEnvelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type feedReadyPayload struct {
	SubscriberID string `json:"subscriber_id"`
	OwnerID      string `json:"owner_id"`
}

type feedNotePayload struct {
	NoteID string        `json:"note_id"`
	Note   *noteResponse `json:"note"`
}

type feedErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
