package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"jotter/cmd/identity/ids"
)

const (
	smokeSubprotocol = "jotter.feed.v1"
	smokeReadLimit   = 1 << 20
)

type smokeOptions struct {
	baseURL  string
	origin   string
	username string
	password string
	timeout  time.Duration
}

var smokeOpts smokeOptions

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Exercise a running jotter server end to end",
	Long: `Sign up a throwaway user, log in, open the notes feed, then create and
delete a note and check that both changes arrive on the feed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSmoke(cmd.Context(), cmd.OutOrStdout(), smokeOpts)
	},
}

func init() {
	f := smokeCmd.Flags()
	f.StringVar(&smokeOpts.baseURL, "url", "http://127.0.0.1:9876", "Server base URL")
	f.StringVar(&smokeOpts.origin, "origin", "", "Origin header to send on the feed handshake")
	f.StringVar(&smokeOpts.username, "username", "", "Username to sign up (random when empty)")
	f.StringVar(&smokeOpts.password, "password", "smoke-password", "Password for the smoke user")
	f.DurationVar(&smokeOpts.timeout, "timeout", 7*time.Second, "Per-step timeout")
	rootCmd.AddCommand(smokeCmd)
}

type smokeEnvelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

type smokeClient struct {
	base    *url.URL
	http    *http.Client
	token   string
	timeout time.Duration
}

func runSmoke(parent context.Context, out io.Writer, o smokeOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	base, err := validateBaseURL(o.baseURL)
	if err != nil {
		return fmt.Errorf("invalid --url: %w", err)
	}
	if o.timeout <= 0 {
		o.timeout = 7 * time.Second
	}
	if strings.TrimSpace(o.username) == "" {
		id, err := ids.NewULID(time.Now().UTC())
		if err != nil {
			return err
		}
		o.username = "smoke-" + strings.ToLower(id)
	}

	c := &smokeClient{base: base, http: &http.Client{Timeout: o.timeout}, timeout: o.timeout}
	creds := map[string]string{"username": o.username, "password": o.password}

	if err := c.do(parent, http.MethodPost, "/signup", creds, http.StatusOK, nil); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := c.do(parent, http.MethodPost, "/login", creds, http.StatusOK, &login); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if login.Token == "" {
		return errors.New("login: empty token")
	}
	c.token = login.Token

	conn, err := c.dialFeed(parent, o.origin)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if _, err := c.readUntil(parent, conn, "feed.ready", ""); err != nil {
		return err
	}

	var created struct {
		ID string `json:"id"`
	}
	note := map[string]any{"title": "smoke", "content": "hello from jotter smoke", "tags": []string{"smoke"}}
	if err := c.do(parent, http.MethodPost, "/notes", note, http.StatusOK, &created); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	if _, err := c.readUntil(parent, conn, "note.created", created.ID); err != nil {
		return err
	}

	if err := c.do(parent, http.MethodDelete, "/notes/"+url.PathEscape(created.ID), nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if _, err := c.readUntil(parent, conn, "note.deleted", created.ID); err != nil {
		return err
	}

	var remaining []json.RawMessage
	if err := c.do(parent, http.MethodGet, "/notes?tag=smoke", nil, http.StatusOK, &remaining); err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if len(remaining) != 0 {
		return fmt.Errorf("list notes: expected none after delete, got %d", len(remaining))
	}

	_, err = fmt.Fprintf(out, "OK: user=%s note=%s\n", o.username, created.ID)
	return err
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func (c *smokeClient) endpoint(path string) string {
	return c.base.String() + path
}

func (c *smokeClient) do(parent context.Context, method, path string, body any, wantStatus int, dst any) error {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, smokeReadLimit))
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (c *smokeClient) dialFeed(parent context.Context, origin string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/notes/feed"

	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{smokeSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if got := conn.Subprotocol(); got != smokeSubprotocol {
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol")
		return nil, fmt.Errorf("subprotocol mismatch: got=%q want=%q", got, smokeSubprotocol)
	}
	conn.SetReadLimit(smokeReadLimit)
	return conn, nil
}

// readUntil skips unrelated envelopes until one of wantType arrives. When
// noteID is set the envelope must also carry that note id.
func (c *smokeClient) readUntil(parent context.Context, conn *websocket.Conn, wantType, noteID string) (smokeEnvelope, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return smokeEnvelope{}, fmt.Errorf("waiting for %q: %w", wantType, err)
		}

		var env smokeEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return smokeEnvelope{}, fmt.Errorf("bad envelope: %w", err)
		}
		if env.Type == "error" {
			return smokeEnvelope{}, fmt.Errorf("server error while waiting for %q: %s", wantType, env.Payload)
		}
		if env.Type != wantType {
			continue
		}
		if noteID == "" {
			return env, nil
		}

		var p struct {
			NoteID string `json:"note_id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return smokeEnvelope{}, fmt.Errorf("bad %s payload: %w", wantType, err)
		}
		if p.NoteID == noteID {
			return env, nil
		}
	}
}
