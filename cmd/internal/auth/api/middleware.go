package authapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"jotter/cmd/internal/httpjson"
	"jotter/cmd/security/token"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(raw string, now time.Time) (token.Claims, error)
}

// TokenIssuer mints bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string, now time.Time) (string, error)
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the token's Identity in the request context for the next handler.
//
// The credential is the second whitespace-separated field of the
// Authorization header. Unless lax is set, the first field must be
// "Bearer" (case-insensitive) and no further fields may follow.
func RequireIdentity(verifier TokenVerifier, lax bool, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}
			cred, ok := credentialFromHeader(raw, lax)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "malformed authorization header")
				return
			}
			if verifier == nil {
				log.Error("auth.middleware.no_verifier")
				httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
				return
			}

			claims, err := verifier.Verify(cred, time.Now().UTC())
			if err != nil {
				log.Debug("auth.token.invalid", "err", err, "path", r.URL.Path)
				httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func credentialFromHeader(raw string, lax bool) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", false
	}
	if lax {
		return fields[1], true
	}
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	return fields[1], true
}
