package authapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

func (h *Handler) auditSignupSuccess(ctx context.Context, r *http.Request, userID, username string) {
	h.audit(ctx, r, "auth.signup.success", slog.String("user_id", userID), slog.String("username", username))
}

func (h *Handler) auditSignupConflict(ctx context.Context, r *http.Request, username string) {
	h.audit(ctx, r, "auth.signup.conflict", slog.String("username", username))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, r *http.Request, userID, username string) {
	h.audit(ctx, r, "auth.login.success", slog.String("user_id", userID), slog.String("username", username))
}

func (h *Handler) auditLoginFailed(ctx context.Context, r *http.Request, username, reason string) {
	h.audit(ctx, r, "auth.login.failed", slog.String("username", username), slog.String("reason", reason))
}

// audit emits one structured record per security-relevant auth event.
func (h *Handler) audit(ctx context.Context, r *http.Request, action string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	attrs = append(attrs, slog.String("audit", "auth"))
	if r != nil {
		if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
			attrs = append(attrs, slog.String("ip", ip.String()))
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			attrs = append(attrs, slog.String("user_agent", ua))
		}
	}
	h.log.LogAttrs(ctx, slog.LevelInfo, action, attrs...)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
