package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-compass/compass-go/internal/config"
	"github.com/trade-compass/compass-go/internal/testserver"
)

type cli struct {
	t *testing.T
}

// newCLI points the binary at srv with a private session file
func newCLI(t *testing.T, srv *testserver.Server) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvBaseURL, srv.BaseURL())
	t.Setenv(config.EnvSessionFile, filepath.Join(dir, "session.json"))
	t.Setenv(config.EnvAdminAPIKey, "")
	t.Setenv(config.EnvSentryDSN, "")
	return &cli{t: t}
}

func (c *cli) run(stdin string, args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c *cli) login() {
	code, out, stderr := c.run(testserver.Password+"\n", "login", "-email", testserver.Email)
	require.Equal(c.t, 0, code, stderr)
	assert.Contains(c.t, out, "Logged in as "+testserver.UserName)
}

func TestRun_Usage(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	code, _, stderr := c.run("")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: compass")

	code, _, stderr = c.run("", "portfolio")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "portfolio"`)
}

func TestRun_LoginAndBrowse(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	c.login()

	code, out, stderr := c.run("", "companies")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "SBER")
	assert.Contains(t, out, "Gazprom")

	code, out, stderr = c.run("", "companies", "-sector", "1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "LKOH")

	code, out, stderr = c.run("", "-json", "sectors")
	require.Equal(t, 0, code, stderr)
	var sectors []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &sectors))
	assert.Len(t, sectors, 2)

	code, out, stderr = c.run("", "whoami")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, testserver.UserName)
	assert.Contains(t, out, "Access token expires")
}

func TestRun_ExpiredSessionIsRenewed(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	c.login()
	srv.Expire()

	code, out, stderr := c.run("", "company", "gazp")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Gazprom")
	assert.Contains(t, out, "128.50")
	assert.Equal(t, 1, srv.Hits(http.MethodPost, "/auth/refresh"))

	// The rotated session was saved; no further refresh is needed
	code, _, stderr = c.run("", "sectors")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, 1, srv.Hits(http.MethodPost, "/auth/refresh"))
}

func TestRun_RevokedSessionAsksForLogin(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	c.login()
	srv.Expire()
	srv.Revoke()

	code, _, stderr := c.run("", "sectors")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "session expired")
	assert.Contains(t, stderr, "Run `compass login`")
}

func TestRun_LoginRejected(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	code, _, stderr := c.run("wrong\n", "login", "-email", testserver.Email)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid credentials")
}

func TestRun_ArgumentErrors(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	c := newCLI(t, srv)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing ticker", args: []string{"company"}, want: "company requires a TICKER"},
		{name: "flag instead of ticker", args: []string{"candles", "-days", "5"}, want: "candles requires a TICKER"},
		{name: "missing year", args: []string{"confirm", "LKOH", "-period", "Q1"}, want: "confirm requires -year"},
		{name: "bad period", args: []string{"confirm", "LKOH", "-year", "2025", "-period", "H1"}, want: "unknown period"},
		{name: "missing email", args: []string{"login"}, want: "login requires -email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COMPASS_EMAIL", "")
			code, _, stderr := c.run("", tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestTickerArgs(t *testing.T) {
	ticker, rest, err := tickerArgs("candles", []string{"sber", "-days", "7"})
	require.NoError(t, err)
	assert.Equal(t, "SBER", ticker)
	assert.Equal(t, []string{"-days", "7"}, rest)
}

func TestReadPassword_Pipe(t *testing.T) {
	var prompt bytes.Buffer
	password, err := readPassword(strings.NewReader("s3cret\r\n"), &prompt)

	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
	assert.Empty(t, prompt.String())
}
