package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-compass/compass-go/internal/types"
)

func TestHandleHTTPError_ServerError_IncludesResponseBody(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  []byte
		expectedInMsg string
	}{
		{
			name:          "525 SSL Handshake Failed with HTML body",
			statusCode:    525,
			responseBody:  []byte(`<html><body>SSL Handshake Failed</body></html>`),
			expectedInMsg: "525",
		},
		{
			name:          "500 with JSON error message",
			statusCode:    500,
			responseBody:  []byte(`{"error": "Internal server error", "message": "Database connection failed"}`),
			expectedInMsg: "Database connection failed",
		},
		{
			name:          "502 Bad Gateway with empty body",
			statusCode:    502,
			responseBody:  []byte{},
			expectedInMsg: "502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleHTTPError(http.MethodGet, "/financial-data/sectors", tt.statusCode, tt.responseBody)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedInMsg)
			assert.True(t, errors.Is(err, types.ErrServerError))

			var apiErr *types.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "SERVER_ERROR", apiErr.Code)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
		})
	}
}

func TestHandleHTTPError_NamesMethodAndPath(t *testing.T) {
	err := HandleHTTPError(http.MethodPut, "/financial-data/raw-data/SBER", 400, []byte(`{"error":"bad period"}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUT /financial-data/raw-data/SBER failed")
	assert.Contains(t, err.Error(), "bad period")
}

func TestHandleHTTPError_StatusMapping(t *testing.T) {
	tests := []struct {
		statusCode int
		want       error
	}{
		{http.StatusUnauthorized, types.ErrNotAuthenticated},
		{http.StatusForbidden, types.ErrNotAuthenticated},
		{http.StatusNotFound, types.ErrNotFound},
		{http.StatusTooManyRequests, types.ErrRateLimited},
		{http.StatusGatewayTimeout, types.ErrTimeout},
		{http.StatusServiceUnavailable, types.ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			err := HandleHTTPError(http.MethodGet, "/x", tt.statusCode, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPTransport_Do_MergesHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/companies",
		Header: http.Header{"X-Api-Key": []string{"secret"}},
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "secret", got.Get("X-Api-Key"))
	assert.Equal(t, types.UserAgent, got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get(requestIDHeader))
}

func TestHTTPTransport_Do_CallerOverridesContentType(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body:   []byte("a,b,c"),
		Header: http.Header{"Content-Type": []string{"text/csv"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", got)
}

func TestHTTPTransport_Do_SendsCookiesFromJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: types.AccessTokenCookie, Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/me":
			c, err := r.Cookie(types.AccessTokenCookie)
			if err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{BaseURL: server.URL})
	require.NoError(t, err)
	require.NotNil(t, tr.Jar())

	ctx := context.Background()
	resp, err := tr.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/login"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = tr.Do(ctx, &Request{Path: "/me"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPTransport_Do_RetriesServerErrorsButNotUnauthorized(t *testing.T) {
	var flaky, denied int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.URL.Path {
		case "/flaky":
			if atomic.AddInt32(&flaky, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/denied":
			atomic.AddInt32(&denied, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{
		BaseURL: server.URL,
		RetryConfig: &types.RetryConfig{
			MaxRetries: 3,
			RetryWait:  time.Millisecond,
			MaxWait:    5 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/flaky", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&flaky))

	resp, err = tr.Do(context.Background(), &Request{Path: "/denied"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&denied))
}

func TestHTTPTransport_Do_PassesThroughExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 1, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), &Request{Path: "/down"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPTransport_Do_NoRetrySendsOnce(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 3, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/auth/refresh", NoRetry: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPTransport_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var hookErr error
	tr, err := NewHTTPTransport(&Options{
		BaseURL: url,
		Hooks: &types.Hooks{
			OnError: func(ctx context.Context, err error) { hookErr = err },
		},
	})
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), &Request{Path: "/companies"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /companies")
	assert.Error(t, hookErr)
}

func TestHTTPTransport_URL(t *testing.T) {
	tr, err := NewHTTPTransport(&Options{BaseURL: "https://example.com/api/"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api/auth/me", tr.URL("/auth/me"))
	assert.Equal(t, "https://example.com/api/auth/me", tr.URL("auth/me"))
}
