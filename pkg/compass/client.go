package compass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/trade-compass/compass-go/internal/session"
	"github.com/trade-compass/compass-go/internal/transport"
	internalTypes "github.com/trade-compass/compass-go/internal/types"
)

const (
	// DefaultBaseURL is the default Trade Compass API base URL
	DefaultBaseURL = internalTypes.DefaultBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// DefaultLoginPath is the login surface reported on session expiry
	DefaultLoginPath = internalTypes.DefaultLoginPath

	refreshPath = internalTypes.RefreshPath
)

// Request is an HTTP call relative to the base URL
type Request = transport.Request

// Response is a fully read HTTP response
type Response = transport.Response

// RetryConfig configures transport retries for connection errors and 5xx
type RetryConfig = internalTypes.RetryConfig

// Hooks provides lifecycle hooks for requests
type Hooks = internalTypes.Hooks

// Client is the main Trade Compass API client
type Client struct {
	// Service interfaces
	Auth      AuthService
	Companies CompanyService
	Prices    PriceService
	RawData   RawDataService
	Reports   ReportService
	Analyses  AnalysisService

	// Internal fields
	baseURL   string
	transport Transport
	jar       http.CookieJar
	options   *ClientOptions
	refresher *refreshCoordinator
	sessions  *session.Store
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// HTTPClient allows using a custom HTTP client. A cookie jar is attached if it has none.
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// SessionFile path for cookie persistence
	SessionFile string

	// AdminAPIKey is sent as X-API-Key on data-entry writes
	AdminAPIKey string

	// LoginPath is reported to OnSessionExpired. Defaults to /auth.
	LoginPath string

	// OnSessionExpired is notified once per failed session refresh
	OnSessionExpired SessionExpiredHandler

	// Logger for debug logging
	Logger Logger

	// RetryConfig configures retry behavior
	RetryConfig *RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// Logger interface for logging
type Logger = internalTypes.Logger

// RateLimiter interface for rate limiting. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Transport performs single HTTP attempts
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// NewClient creates a new Trade Compass client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		// Tracking is optional; a bad DSN must not stop the client
		if err := sentry.Init(sentryOpts); err != nil && opts.Logger != nil {
			opts.Logger.Error("Failed to initialize Sentry", "error", err)
		}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	trans, err := transport.NewHTTPTransport(&transport.Options{
		BaseURL:     opts.BaseURL,
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transport")
	}

	c := newClient(opts, trans, trans.Jar())

	if opts.SessionFile != "" {
		err := c.Auth.LoadSession(opts.SessionFile)
		if err != nil && !errors.Is(err, session.ErrNoSession) && opts.Logger != nil {
			opts.Logger.Warn("Failed to load session", "error", err)
		}
	}

	return c, nil
}

// newClient wires a client around an existing transport
func newClient(opts *ClientOptions, trans Transport, jar http.CookieJar) *Client {
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}

	expired := opts.OnSessionExpired
	if expired == nil {
		expired = SessionExpiredFunc(func(ctx context.Context, redirectTo string) {
			if opts.Logger != nil {
				opts.Logger.Warn("Session expired, sign in again", "redirect", redirectTo)
			}
		})
	}

	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		transport: trans,
		jar:       jar,
		options:   opts,
		sessions:  session.NewStore(opts.Logger),
	}
	c.refresher = newRefreshCoordinator(c.refreshSession, expired, opts.LoginPath, opts.Logger)

	c.initServices()

	return c
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = &authService{client: c}
	c.Companies = &companyService{client: c}
	c.Prices = &priceService{client: c}
	c.RawData = &rawDataService{client: c}
	c.Reports = &reportService{client: c}
	c.Analyses = &analysisService{client: c}
}

// Request issues an HTTP call with the session cookies attached. A 401 from
// a non-auth path renews the session once, shared with every other caller
// that hits 401 meanwhile, and replays the request. When renewal fails the
// request is not replayed and the error wraps ErrSessionExpired.
func (c *Client) Request(ctx context.Context, req *Request) (*Response, error) {
	seen := c.refresher.currentGeneration()

	resp, err := c.attempt(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || isAuthPath(req.Path) {
		return resp, nil
	}

	if err := c.refresher.await(ctx, seen); err != nil {
		return nil, err
	}

	// A 401 on the replay is handed back as-is; replays never refresh again.
	return c.attempt(ctx, req)
}

// attempt performs one network call
func (c *Client) attempt(ctx context.Context, req *Request) (*Response, error) {
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return c.transport.Do(ctx, req)
}

// Get issues a GET and decodes the JSON response into result
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, result)
}

// Post issues a POST with a JSON body and decodes the JSON response into result
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, nil, result)
}

// Put issues a PUT with a JSON body and decodes the JSON response into result
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, nil, result)
}

// Delete issues a DELETE and decodes the JSON response into result
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, result)
}

// do is the shared body of the typed helpers
func (c *Client) do(ctx context.Context, method, path string, body interface{}, header http.Header, result interface{}) error {
	req := &Request{
		Method: method,
		Path:   path,
		Header: header,
	}

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s %s body", method, path)
		}
		req.Body = data
	}

	start := time.Now()
	resp, err := c.Request(ctx, req)
	if err != nil {
		err = errors.Wrapf(err, "%s %s failed", method, path)
		c.captureError(ctx, method, path, time.Since(start), err)
		return err
	}

	if !resp.OK() {
		err := handleHTTPError(method, path, resp)
		c.captureError(ctx, method, path, time.Since(start), err)
		return err
	}

	if result != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return errors.Wrapf(err, "failed to decode %s %s response", method, path)
		}
	}

	return nil
}

// captureError reports a failed call to Sentry. 404 is an expected answer and is skipped.
func (c *Client) captureError(ctx context.Context, method, path string, duration time.Duration, err error) {
	// A failed refresh is reported once by the coordinator
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionExpired) {
		return
	}

	capture := func(scope *sentry.Scope, send func(error) *sentry.EventID) {
		scope.SetTag("http.method", method)
		scope.SetTag("http.path", path)
		scope.SetContext("request", map[string]interface{}{
			"method":   method,
			"path":     path,
			"duration": duration.String(),
		})
		send(err)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			capture(scope, hub.CaptureException)
		})
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		capture(scope, sentry.CaptureException)
	})
}

// sessionURL is the URL whose cookies make up the session
func (c *Client) sessionURL() (*url.URL, error) {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	return u, nil
}

// persistSession saves the session cookies if a session file is configured
func (c *Client) persistSession() {
	path := c.options.SessionFile
	if path == "" {
		return
	}

	u, err := c.sessionURL()
	if err == nil {
		err = c.sessions.Save(path, c.jar, u)
	}
	if err != nil && c.options.Logger != nil {
		c.options.Logger.Warn("Failed to save session", "error", err)
	}
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	sentry.Flush(2 * time.Second)
}

// isAuthPath reports whether path is an authentication endpoint
func isAuthPath(path string) bool {
	for _, prefix := range internalTypes.AuthPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// handleHTTPError maps a non-2xx response to an *Error
func handleHTTPError(method, path string, resp *Response) error {
	return transport.HandleHTTPError(method, path, resp.StatusCode, resp.Body)
}
