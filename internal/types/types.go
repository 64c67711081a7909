package types

import (
	"context"
	"net/http"
	"time"
)

// Logger interface for logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RetryConfig configures retry behavior for transient transport failures
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries" yaml:"max_retries"`
	RetryWait  time.Duration `json:"retryWait" yaml:"retry_wait"`
	MaxWait    time.Duration `json:"maxWait" yaml:"max_wait"`
}

// Hooks provides lifecycle hooks for requests
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
}
