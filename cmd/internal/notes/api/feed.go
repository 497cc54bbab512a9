package notesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"jotter/cmd/identity/ids"
	authapi "jotter/cmd/internal/auth/api"
	"jotter/cmd/internal/notes"
)

const (
	feedSubprotocol = "jotter.feed.v1"

	feedMaxFrameBytes   = 4 << 10
	feedMaxPingFailures = 3
	feedCloseGrace      = 1 * time.Second
)

// FeedGateway upgrades GET /notes/feed to a WebSocket and streams the
// caller's note changes. Client data frames are not part of the protocol.
type FeedGateway struct {
	log *slog.Logger
	hub *notes.Hub
	cfg FeedConfig

	// Derived for websocket.Accept origin checks.
	originPatterns []string
}

// NewFeedGateway binds a gateway to hub.
func NewFeedGateway(log *slog.Logger, hub *notes.Hub, cfg FeedConfig) *FeedGateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = notes.NewHub(log)
	}
	cfg = Config{Feed: cfg}.normalized().Feed

	return &FeedGateway{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		originPatterns: deriveOriginPatterns(cfg.AllowedOrigins),
	}
}

// ServeHTTP runs one feed session. It must sit behind the identity middleware.
func (g *FeedGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := authapi.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("feed.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{feedSubprotocol},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Error("feed.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != feedSubprotocol {
		g.log.Info("feed.reject.subprotocol", "got", sp, "want", feedSubprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(feedMaxFrameBytes)

	sub, err := g.hub.Subscribe(id.UserID, g.cfg.SendQueue)
	if err != nil {
		g.log.Error("feed.subscribe.fail", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once
	// shutdown is idempotent. The hub drops the subscriber before Close so
	// no publisher can still target it.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Unsubscribe(sub)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	// control carries frames produced by the gateway itself (ready, errors).
	control := make(chan feedEnvelope, 4)

	ready, err := newFeedEnvelope(feedTypeReady, feedReadyPayload{SubscriberID: sub.ID, OwnerID: id.UserID}, time.Now().UTC())
	if err == nil {
		control <- ready
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			var (
				env feedEnvelope
				err error
			)
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case env = <-control:
			case ev := <-sub.Send:
				env, err = eventEnvelope(ev)
				if err != nil {
					g.log.Error("feed.encode.fail", "subscriber_id", sub.ID, "err", err)
					continue
				}
			}
			if err := writeFeedEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
				g.log.Info("feed.write.fail", "subscriber_id", sub.ID, "close_status", websocket.CloseStatus(err), "err", err)
				shutdown(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("feed.ping.fail", "subscriber_id", sub.ID, "failures", failures, "err", err)
					if failures >= feedMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	// The read loop keeps control frames (pong, close) flowing. Liveness is
	// covered by the heartbeat, so reads carry no idle timeout.
readLoop:
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("feed.read.fail", "subscriber_id", sub.ID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break readLoop
		}

		if env, err := newFeedEnvelope(feedTypeError, feedErrorPayload{Code: "read_only", Message: "feed does not accept messages"}, time.Now().UTC()); err == nil {
			select {
			case control <- env:
			default:
			}
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(feedCloseGrace):
	}
}

// ---- envelope IO ----

func newFeedEnvelope(typ string, payload any, ts time.Time) (feedEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return feedEnvelope{}, err
	}
	id, err := ids.NewULID(ts)
	if err != nil {
		return feedEnvelope{}, err
	}
	return feedEnvelope{V: feedVersion, Type: typ, ID: id, TS: ts, Payload: raw}, nil
}

func eventEnvelope(ev notes.Event) (feedEnvelope, error) {
	p := feedNotePayload{NoteID: ev.NoteID}
	if ev.Note != nil {
		n := toNoteResponse(*ev.Note)
		p.Note = &n
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return newFeedEnvelope(ev.Type, p, at)
}

func writeFeedEnvelope(parent context.Context, conn *websocket.Conn, env feedEnvelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

// ---- origin policy ----

func (g *FeedGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.cfg.AllowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)
	for _, a := range g.cfg.AllowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" || origin == a {
			return nil
		}
		// Host match ignores scheme and port.
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

// deriveOriginPatterns turns the allowlist into websocket.Accept host
// patterns so both origin checks agree. A "*" entry becomes "*".
func deriveOriginPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if strings.TrimSpace(a) == "*" {
			return []string{"*"}
		}
		h := originHostOnly(a)
		if h == "" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
