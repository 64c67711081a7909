package compass

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trade-compass/compass-go/internal/session"
	internalTypes "github.com/trade-compass/compass-go/internal/types"
)

// authService implements the AuthService interface
type authService struct {
	client *Client
}

// Login performs authentication. The server answers with session cookies.
func (a *authService) Login(ctx context.Context, email, password string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "required"}
	}

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal login request")
	}

	resp, err := a.client.Request(ctx, &Request{Method: http.MethodPost, Path: "/auth/login", Body: body})
	if err != nil {
		return errors.Wrap(err, "login request failed")
	}

	if !resp.OK() {
		return authFailure(resp, "LOGIN_FAILED", ErrLoginFailed)
	}

	if a.client.options.Logger != nil {
		a.client.options.Logger.Info("Login successful", "email", email)
	}

	a.persist()
	return nil
}

// Register creates an account
func (a *authService) Register(ctx context.Context, params *RegisterParams) error {
	if params == nil || params.Email == "" {
		return &ValidationError{Field: "email", Message: "required"}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to marshal register request")
	}

	resp, err := a.client.Request(ctx, &Request{Method: http.MethodPost, Path: "/auth/register", Body: body})
	if err != nil {
		return errors.Wrap(err, "register request failed")
	}

	if !resp.OK() {
		return authFailure(resp, "REGISTRATION_FAILED", ErrRegistrationFailed)
	}

	a.persist()
	return nil
}

// Logout ends the session. The server clears the cookies; the outcome is
// not checked.
func (a *authService) Logout(ctx context.Context) error {
	if _, err := a.client.Request(ctx, &Request{Method: http.MethodPost, Path: "/auth/logout"}); err != nil {
		return errors.Wrap(err, "logout request failed")
	}

	a.persist()
	return nil
}

// CurrentUser returns the signed-in user
func (a *authService) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.Get(ctx, "/auth/me", &user); err != nil {
		return nil, errors.Wrap(err, "failed to get current user")
	}
	return &user, nil
}

// YandexAuthURL returns the OAuth URL for Yandex sign-in
func (a *authService) YandexAuthURL(ctx context.Context) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := a.client.Get(ctx, "/auth/yandex/url", &result); err != nil {
		return "", errors.Wrap(err, "failed to get Yandex OAuth URL")
	}
	return result.URL, nil
}

// Refresh renews the session through the shared refresh coordinator
func (a *authService) Refresh(ctx context.Context) error {
	r := a.client.refresher
	return r.await(ctx, r.currentGeneration())
}

// HasSession reports whether an access token cookie is present. It does not
// check that the token is still valid.
func (a *authService) HasSession() bool {
	u, err := a.client.sessionURL()
	if err != nil {
		return false
	}
	_, ok := session.Lookup(a.client.jar, u, internalTypes.AccessTokenCookie)
	return ok
}

// SessionInfo decodes the access token cookie
func (a *authService) SessionInfo() (*SessionInfo, error) {
	u, err := a.client.sessionURL()
	if err != nil {
		return nil, err
	}

	token, ok := session.Lookup(a.client.jar, u, internalTypes.AccessTokenCookie)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	claims, err := session.Inspect(token)
	if err != nil {
		return nil, err
	}

	return &SessionInfo{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Status:    claims.Status,
		ExpiresAt: claims.Expiry(),
		Expired:   claims.Expired(time.Now()),
	}, nil
}

// SaveSession saves the session cookies to file
func (a *authService) SaveSession(path string) error {
	u, err := a.client.sessionURL()
	if err != nil {
		return err
	}
	return a.client.sessions.Save(path, a.client.jar, u)
}

// LoadSession loads the session cookies from file
func (a *authService) LoadSession(path string) error {
	u, err := a.client.sessionURL()
	if err != nil {
		return err
	}
	return a.client.sessions.Load(path, a.client.jar, u)
}

// persist saves the session if a session file is configured
func (a *authService) persist() {
	a.client.persistSession()
}

// authFailure builds the error for a rejected login or registration from
// the server's {"error": "..."} body
func authFailure(resp *Response, code string, sentinel error) error {
	var errResp struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body, &errResp)

	return &Error{
		Code:       code,
		Message:    errResp.Error,
		StatusCode: resp.StatusCode,
		Err:        sentinel,
	}
}
