package types

import (
	"errors"
	"time"
)

const (
	// DefaultBaseURL is the default Trade Compass API base URL
	DefaultBaseURL = "https://trade-compass.ru/api"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "compass-go/1.0.0"

	// DefaultLoginPath is where the application sends users whose session cannot be renewed
	DefaultLoginPath = "/auth"

	// RefreshPath renews the session cookies
	RefreshPath = "/auth/refresh"

	// AccessTokenCookie and RefreshTokenCookie are the session cookie names set by the auth service
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// AuthPaths never trigger a session refresh when they answer 401.
var AuthPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/auth/logout",
}

// Common errors
var (
	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrLoginFailed is returned when login fails
	ErrLoginFailed = errors.New("login failed")

	// ErrRegistrationFailed is returned when registration is rejected
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrSessionExpired is returned when the session could not be renewed
	ErrSessionExpired = errors.New("session expired")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")
)
