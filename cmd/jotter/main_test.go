package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotter/cmd/internal/app"
	authapi "jotter/cmd/internal/auth/api"
	notesapi "jotter/cmd/internal/notes/api"
	"jotter/cmd/security/password"
	"jotter/cmd/security/token"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := out.String(); !strings.HasPrefix(got, "jotter ") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestMigratePrint(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--print", "--schema", "notes_test"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		printOnly = false
		migrateSchema = "jotter"
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	sql := out.String()
	if !strings.Contains(sql, `"notes_test".notes`) || strings.Contains(sql, "{{schema}}") {
		t.Fatalf("schema not substituted:\n%s", sql)
	}
}

func TestSmokeAgainstInMemoryServer(t *testing.T) {
	pw := password.DefaultConfig()
	pw.Params.MemoryKiB = 8 * 1024
	pw.Params.Iterations = 1
	pw.Params.Parallelism = 1

	cfg := app.Config{
		DBSchema:           "jotter",
		CORSAllowedOrigins: []string{"*"},
		Token:              token.Config{Secret: "0123456789abcdef0123456789abcdef-cli", Issuer: token.DefaultIssuer},
		Auth:               authapi.DefaultConfig(),
		Notes:              notesapi.DefaultConfig(),
		Password:           pw,
	}
	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err = runSmoke(context.Background(), &out, smokeOptions{
		baseURL:  srv.URL,
		username: "smoke-user",
		password: "pw1",
		timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "OK: user=smoke-user note="), out.String())
}

func TestSmokeRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://host", "http://", "::"} {
		err := runSmoke(context.Background(), io.Discard, smokeOptions{baseURL: raw})
		assert.Error(t, err, raw)
	}
}
