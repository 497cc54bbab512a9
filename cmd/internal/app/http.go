package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"jotter/cmd/internal/httpjson"
)

// newRouter registers every route on a fresh router.
func (a *App) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Error(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	if a.metrics != nil {
		r.Use(HTTPMetricsMiddleware(a.metrics))
		r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)

	a.auth.Register(r)
	a.notes.Register(r, a.auth.RequireIdentity)

	return r
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.cfg.ReadinessRequireDB && !a.dbEnabled {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	if a.dbEnabled && a.dbPool != nil {
		if err := PingDB(r.Context(), a.dbPool, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.db.not_ready", "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

// buildHandler wraps the router with the cross-cutting middleware.
// Request id is outermost so every log line can carry it.
func (a *App) buildHandler() http.Handler {
	var h http.Handler = a.newRouter()
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRecovery(h, a.log)
	h = WithRequestLogging(h, a.log)
	return WithRequestID(h)
}
