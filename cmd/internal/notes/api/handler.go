package notesapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	authapi "jotter/cmd/internal/auth/api"
	"jotter/cmd/internal/httpjson"
	"jotter/cmd/internal/notes"
)

// Notes is the repository surface the handler needs.
// *notes.Repository satisfies it.
type Notes interface {
	Create(ctx context.Context, ownerID, title, content string, tags []string) (notes.Note, error)
	ListByOwner(ctx context.Context, ownerID, tag string) ([]notes.Note, error)
	UpdateOwned(ctx context.Context, noteID, ownerID string, p notes.Patch) (notes.UpdateResult, error)
	DeleteOwned(ctx context.Context, noteID, ownerID string) (notes.DeleteResult, error)
}

// Handler serves /notes.
type Handler struct {
	log  *slog.Logger
	cfg  Config
	repo Notes
	feed *FeedGateway
}

// NewHandler constructs a notes Handler. hub may be nil, in which case the
// change feed route is not registered.
func NewHandler(log *slog.Logger, repo Notes, hub *notes.Hub, cfg Config) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("notesapi: nil repository")
	}
	if log == nil {
		log = slog.Default()
	}

	cfg = cfg.normalized()
	h := &Handler{log: log, cfg: cfg, repo: repo}
	if hub != nil {
		h.feed = NewFeedGateway(log, hub, cfg.Feed)
	}
	return h, nil
}

// Register wires the notes routes onto r behind requireIdentity.
func (h *Handler) Register(r *mux.Router, requireIdentity mux.MiddlewareFunc) {
	if h == nil || r == nil {
		return
	}

	sub := r.PathPrefix("/notes").Subrouter()
	if requireIdentity != nil {
		sub.Use(requireIdentity)
	}

	sub.HandleFunc("", h.handleCreate).Methods(http.MethodPost)
	sub.HandleFunc("", h.handleList).Methods(http.MethodGet)
	if h.feed != nil {
		sub.Handle("/feed", h.feed).Methods(http.MethodGet)
	}
	sub.HandleFunc("/{id}", h.handleUpdate).Methods(http.MethodPut)
	sub.HandleFunc("/{id}", h.handleDelete).Methods(http.MethodDelete)
}

// ---- handlers ----

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	n, err := h.repo.Create(r.Context(), owner, req.Title, req.Content, req.Tags)
	if err != nil {
		h.writeRepoError(w, "notes.create.fail", err)
		return
	}

	httpjson.Write(w, http.StatusOK, toNoteResponse(n))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	out, err := h.repo.ListByOwner(r.Context(), owner, r.URL.Query().Get("tag"))
	if err != nil {
		h.writeRepoError(w, "notes.list.fail", err)
		return
	}

	httpjson.Write(w, http.StatusOK, toNoteResponses(out))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	res, err := h.repo.UpdateOwned(r.Context(), mux.Vars(r)["id"], owner, req.patch())
	if err != nil {
		h.writeRepoError(w, "notes.update.fail", err)
		return
	}
	if res.Outcome != notes.OutcomeUpdated || res.Note == nil {
		// Missing and foreign notes look the same to the caller.
		httpjson.Write(w, http.StatusOK, nil)
		return
	}

	httpjson.Write(w, http.StatusOK, toNoteResponse(*res.Note))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.DeleteOwned(r.Context(), mux.Vars(r)["id"], owner); err != nil {
		h.writeRepoError(w, "notes.delete.fail", err)
		return
	}

	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Note deleted"})
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := authapi.IdentityFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return "", false
	}
	return id.UserID, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, event string, err error) {
	var oe notes.OpError
	switch {
	case notes.IsInvalidInput(err) && errors.As(err, &oe) && oe.Msg != "":
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", oe.Msg)
	case notes.IsInvalidInput(err):
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid input")
	default:
		h.log.Error(event, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
