package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/trade-compass/compass-go/internal/types"
)

const (
	contentType     = "application/json"
	requestIDHeader = "X-Request-Id"
)

// HTTPTransport issues single HTTP attempts against the API. Every attempt
// carries the cookies held in the client's jar.
type HTTPTransport struct {
	baseURL     string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	logger      types.Logger
	hooks       *types.Hooks
}

// Request is an intended HTTP call relative to the base URL
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
	// NoRetry sends the request once even when retries are configured
	NoRetry bool
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Options for HTTP transport
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
}

// NewHTTPTransport creates a new HTTP transport. A cookie jar is attached to
// the HTTP client when it has none.
func NewHTTPTransport(opts *Options) (*HTTPTransport, error) {
	if opts == nil {
		opts = &Options{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	if opts.HTTPClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create cookie jar")
		}
		opts.HTTPClient.Jar = jar
	}

	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		// Hand the last response back instead of a "giving up" error so
		// status handling stays with the caller.
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		} else {
			retryClient.Logger = nil
		}
	}

	headers := map[string]string{
		"Accept":       contentType,
		"Content-Type": contentType,
		"User-Agent":   types.UserAgent,
	}

	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPTransport{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		headers:     headers,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}, nil
}

// Do performs exactly one logical request and reads the whole body.
// Transport-level retries for connection errors and 5xx happen inside when
// a RetryConfig was given, unless the request sets NoRetry; 401 is never
// retried here.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.URL(req.Path), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	// Caller headers win over defaults
	for k, values := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	if t.logger != nil {
		t.logger.Debug("HTTP request", "method", method, "path", req.Path, "requestId", httpReq.Header.Get(requestIDHeader))
	}

	start := time.Now()
	resp, err := t.doRequest(httpReq, !req.NoRetry)
	duration := time.Since(start)

	if err != nil {
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return nil, errors.Wrapf(err, "%s %s", method, req.Path)
	}
	defer resp.Body.Close()

	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if t.logger != nil {
		t.logger.Debug("HTTP response", "method", method, "path", req.Path, "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// URL resolves a path against the base URL
func (t *HTTPTransport) URL(path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return t.baseURL + path
}

// Jar returns the cookie jar carrying the session credentials
func (t *HTTPTransport) Jar() http.CookieJar {
	return t.httpClient.Jar
}

// doRequest executes the HTTP request with retry if configured and allowed
func (t *HTTPTransport) doRequest(req *http.Request, retry bool) (*http.Response, error) {
	if retry && t.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// HandleHTTPError maps a non-2xx response to an *types.Error naming the call
func HandleHTTPError(method, path string, statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"error_code"`
	}

	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}

	apiErr := &types.Error{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    msg,
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Code = "NOT_AUTHENTICATED"
		apiErr.Err = types.ErrNotAuthenticated
	case http.StatusNotFound:
		apiErr.Code = "NOT_FOUND"
		apiErr.Err = types.ErrNotFound
	case http.StatusTooManyRequests:
		apiErr.Code = "RATE_LIMITED"
		apiErr.Err = types.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		apiErr.Code = "TIMEOUT"
		apiErr.Err = types.ErrTimeout
	case http.StatusBadRequest:
		apiErr.Code = "BAD_REQUEST"
	default:
		if statusCode >= 500 {
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := httpStatusDescription(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}
			if msg != "" {
				baseMsg = fmt.Sprintf("%s: %s", baseMsg, msg)
			}

			apiErr.Code = "SERVER_ERROR"
			apiErr.Message = baseMsg
			apiErr.Err = types.ErrServerError
			return apiErr
		}
		apiErr.Code = "HTTP_ERROR"
	}

	if apiErr.Message == "" && apiErr.Err == nil {
		apiErr.Message = fmt.Sprintf("HTTP error: %d", statusCode)
	}

	return apiErr
}

// httpStatusDescription returns a human-readable description for common HTTP status codes.
// Covers the Cloudflare 52x range the API sits behind.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
		530: "Origin DNS Error",
	}
	return descriptions[statusCode]
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
