package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"jotter/cmd/identity"
	"jotter/cmd/internal/httpjson"
)

// Accounts is the credential surface the handler needs.
// *identity.Credentials satisfies it.
type Accounts interface {
	Register(ctx context.Context, username, secret string) (identity.User, error)
	Verify(ctx context.Context, username, secret string) (identity.User, error)
	Lookup(ctx context.Context, id string) (identity.User, error)
}

// Tokens issues and verifies bearer tokens. *token.Manager satisfies it.
type Tokens interface {
	TokenIssuer
	TokenVerifier
}

// Handler wires HTTP auth endpoints to the credential store and token service.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts Accounts
	tokens   Tokens
	now      func() time.Time
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handler)

// WithClock overrides the time source used when issuing tokens.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, accounts Accounts, tokens Tokens, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("authapi: nil accounts")
	}
	if tokens == nil {
		return nil, errors.New("authapi: nil token service")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.normalized(),
		accounts: accounts,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto r.
func (h *Handler) Register(r *mux.Router) {
	if h == nil || r == nil {
		return
	}
	r.HandleFunc("/signup", h.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	r.Handle("/me", h.RequireIdentity(http.HandlerFunc(h.handleMe))).Methods(http.MethodGet)
}

// RequireIdentity is the identity middleware bound to this handler's token
// service and scheme policy.
func (h *Handler) RequireIdentity(next http.Handler) http.Handler {
	return RequireIdentity(h.tokens, h.cfg.LaxScheme, h.log)(next)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case identity.IsInvalidInput(err):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", invalidMessage(err))
		case identity.IsConflict(err):
			h.auditSignupConflict(ctx, r, req.Username)
			httpjson.Error(w, http.StatusConflict, "conflict", "Same user name exists")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditSignupSuccess(ctx, r, u.ID, u.Username)
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "User created"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.accounts.Verify(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case identity.IsInvalidInput(err):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", invalidMessage(err))
		case identity.IsNotFound(err):
			h.auditLoginFailed(ctx, r, req.Username, "user_not_found")
			httpjson.Error(w, http.StatusUnauthorized, "user_not_found", "User not found")
		case identity.IsUnauthorized(err):
			h.auditLoginFailed(ctx, r, req.Username, "wrong_password")
			httpjson.Error(w, http.StatusUnauthorized, "wrong_password", "Wrong Password")
		default:
			h.log.Error("auth.login.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	tok, err := h.tokens.Issue(u.ID, h.now())
	if err != nil {
		h.log.Error("auth.login.issue_token.fail", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLoginSuccess(ctx, r, u.ID, u.Username)
	httpjson.Write(w, http.StatusOK, tokenResponse{Token: tok})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	u, err := h.accounts.Lookup(r.Context(), id.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			httpjson.Error(w, http.StatusUnauthorized, "not_found", "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpjson.Write(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}

func invalidMessage(err error) string {
	var oe identity.OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	return "invalid input"
}
