package notes

import (
	"log/slog"
	"sync"
	"time"

	"jotter/cmd/identity/ids"
)

// Feed event types (wire-stable).
const (
	EventNoteCreated = "note.created"
	EventNoteUpdated = "note.updated"
	EventNoteDeleted = "note.deleted"
)

// Event is one change to an owner's notes.
// Note is nil for deletions; NoteID is always set.
type Event struct {
	Type    string
	OwnerID string
	NoteID  string
	Note    *Note
	At      time.Time
}

// Publisher receives change events from the Repository.
type Publisher interface {
	Publish(ev Event)
}

// Subscriber is one live feed connection for a single owner.
//
// Send is never closed by the hub so concurrent publishers cannot panic;
// Done signals shutdown instead. Close is idempotent.
type Subscriber struct {
	ID      string
	OwnerID string
	Send    chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Done returns a channel that is closed when the subscriber shuts down.
func (s *Subscriber) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Close signals shutdown without closing Send.
func (s *Subscriber) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub fans events out to the subscribers of the event's owner only.
// Publish never blocks: a full subscriber queue drops the event.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	byOwner map[string]map[string]*Subscriber

	// OnDrop, when set, is called once per dropped delivery.
	OnDrop func(ev Event)
}

// NewHub constructs an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		byOwner: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber for ownerID with a bounded queue.
func (h *Hub) Subscribe(ownerID string, queueSize int) (*Subscriber, error) {
	if queueSize <= 0 {
		queueSize = 64
	}
	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:      id,
		OwnerID: ownerID,
		Send:    make(chan Event, queueSize),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	subs := h.byOwner[ownerID]
	if subs == nil {
		subs = make(map[string]*Subscriber)
		h.byOwner[ownerID] = subs
	}
	subs[sub.ID] = sub
	h.mu.Unlock()

	h.log.Info("feed.subscribe", "owner_id", ownerID, "subscriber_id", sub.ID)
	return sub, nil
}

// Unsubscribe removes sub and then closes it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if h == nil || sub == nil {
		return
	}

	h.mu.Lock()
	if subs := h.byOwner[sub.OwnerID]; subs != nil {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.byOwner, sub.OwnerID)
		}
	}
	h.mu.Unlock()

	// Removed from the fanout set before Close so no publisher still targets it.
	sub.Close()

	h.log.Info("feed.unsubscribe", "owner_id", sub.OwnerID, "subscriber_id", sub.ID)
}

// Publish delivers ev to every live subscriber of ev.OwnerID.
func (h *Hub) Publish(ev Event) {
	if h == nil || ev.OwnerID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.byOwner[ev.OwnerID] {
		select {
		case <-sub.Done():
			continue
		default:
		}

		select {
		case sub.Send <- ev:
		default:
			if h.OnDrop != nil {
				h.OnDrop(ev)
			}
		}
	}
}

// Len returns the number of live subscribers across all owners.
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, subs := range h.byOwner {
		n += len(subs)
	}
	return n
}
