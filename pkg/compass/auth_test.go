package compass

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthClient(t *testing.T, sessionFile string) (*Client, *MockTransport, http.CookieJar) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	m := new(MockTransport)
	c := newClient(&ClientOptions{
		BaseURL:     "https://api.test",
		SessionFile: sessionFile,
	}, m, jar)
	return c, m, jar
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func setSessionCookies(jar http.CookieJar, access string) {
	u, _ := url.Parse("https://api.test/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "accessToken", Value: access, Path: "/"},
		{Name: "refreshToken", Value: "refresh-" + access, Path: "/"},
	})
}

func TestAuthService_Login(t *testing.T) {
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	client, mockTransport, jar := newAuthClient(t, sessionFile)

	var sent map[string]string
	mockTransport.On("Do", mock.Anything, matchRequest(http.MethodPost, "/auth/login")).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(*Request)
			require.NoError(t, json.Unmarshal(req.Body, &sent))
			setSessionCookies(jar, "access-1")
		}).
		Return(jsonResponse(http.StatusOK, `{"id":1,"name":"Ivan"}`), nil)

	err := client.Auth.Login(context.Background(), "ivan@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", sent["email"])
	assert.Equal(t, "secret", sent["password"])
	assert.True(t, client.Auth.HasSession())

	// Session is persisted after sign-in
	data, err := os.ReadFile(sessionFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "access-1")
}

func TestAuthService_LoginRejected(t *testing.T) {
	client, mockTransport, _ := newAuthClient(t, "")

	mockTransport.On("Do", mock.Anything, matchRequest(http.MethodPost, "/auth/login")).
		Return(jsonResponse(http.StatusUnauthorized, `{"error":"invalid credentials"}`), nil).Once()

	err := client.Auth.Login(context.Background(), "ivan@example.com", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, "invalid credentials: login failed", err.Error())
	assert.False(t, client.Auth.HasSession())
	mockTransport.AssertNumberOfCalls(t, "Do", 1)
}

func TestAuthService_LoginValidation(t *testing.T) {
	client, mockTransport, _ := newAuthClient(t, "")

	err := client.Auth.Login(context.Background(), "", "secret")

	assert.ErrorIs(t, err, ErrInvalidRequest)
	mockTransport.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestAuthService_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		client, mockTransport, _ := newAuthClient(t, "")
		mockTransport.On("Do", mock.Anything, matchRequest(http.MethodPost, "/auth/register")).
			Return(jsonResponse(http.StatusCreated, `{}`), nil)

		err := client.Auth.Register(context.Background(), &RegisterParams{
			Email:    "ivan@example.com",
			Password: "secret",
			Name:     "Ivan",
		})

		require.NoError(t, err)
		mockTransport.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		client, mockTransport, _ := newAuthClient(t, "")
		mockTransport.On("Do", mock.Anything, matchRequest(http.MethodPost, "/auth/register")).
			Return(jsonResponse(http.StatusConflict, `{"error":"user already exists"}`), nil)

		err := client.Auth.Register(context.Background(), &RegisterParams{Email: "ivan@example.com"})

		assert.ErrorIs(t, err, ErrRegistrationFailed)
		assert.Contains(t, err.Error(), "user already exists")
	})
}

func TestAuthService_LogoutIgnoresStatus(t *testing.T) {
	client, mockTransport, _ := newAuthClient(t, "")
	mockTransport.On("Do", mock.Anything, matchRequest(http.MethodPost, "/auth/logout")).
		Return(jsonResponse(http.StatusInternalServerError, `{}`), nil)

	assert.NoError(t, client.Auth.Logout(context.Background()))
}

func TestAuthService_CurrentUser(t *testing.T) {
	client, mockTransport, _ := newAuthClient(t, "")
	mockTransport.On("Do", mock.Anything, matchRequest(http.MethodGet, "/auth/me")).
		Return(jsonResponse(http.StatusOK, `{"id":42,"name":"Ivan","status":"admin"}`), nil)

	user, err := client.Auth.CurrentUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Ivan", user.Name)
	assert.Equal(t, "admin", user.Status)
}

func TestAuthService_YandexAuthURL(t *testing.T) {
	client, mockTransport, _ := newAuthClient(t, "")
	mockTransport.On("Do", mock.Anything, matchRequest(http.MethodGet, "/auth/yandex/url")).
		Return(jsonResponse(http.StatusOK, `{"url":"https://oauth.yandex.ru/authorize?client_id=abc"}`), nil)

	u, err := client.Auth.YandexAuthURL(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "https://oauth.yandex.ru/authorize?client_id=abc", u)
}

func TestAuthService_SessionInfo(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		client, _, _ := newAuthClient(t, "")

		_, err := client.Auth.SessionInfo()
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("valid token", func(t *testing.T) {
		client, _, jar := newAuthClient(t, "")
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		setSessionCookies(jar, signedToken(t, jwt.MapClaims{
			"sub":    7,
			"name":   "Ivan",
			"status": "user",
			"exp":    exp.Unix(),
		}))

		info, err := client.Auth.SessionInfo()

		require.NoError(t, err)
		assert.Equal(t, int64(7), info.UserID)
		assert.Equal(t, "Ivan", info.Name)
		assert.Equal(t, "user", info.Status)
		assert.True(t, exp.Equal(info.ExpiresAt))
		assert.False(t, info.Expired)
	})

	t.Run("expired token", func(t *testing.T) {
		client, _, jar := newAuthClient(t, "")
		setSessionCookies(jar, signedToken(t, jwt.MapClaims{
			"sub": 7,
			"exp": time.Now().Add(-time.Minute).Unix(),
		}))

		info, err := client.Auth.SessionInfo()

		require.NoError(t, err)
		assert.True(t, info.Expired)
	})
}

func TestAuthService_SaveAndLoadSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	client, _, jar := newAuthClient(t, "")
	setSessionCookies(jar, "access-9")
	require.NoError(t, client.Auth.SaveSession(path))

	restored, _, _ := newAuthClient(t, "")
	assert.False(t, restored.Auth.HasSession())
	require.NoError(t, restored.Auth.LoadSession(path))
	assert.True(t, restored.Auth.HasSession())
}
