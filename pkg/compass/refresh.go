package compass

import (
	"context"
	"net/http"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

// SessionExpiredHandler is told when the session could not be renewed.
// redirectTo is the login surface the application should send the user to.
type SessionExpiredHandler interface {
	SessionExpired(ctx context.Context, redirectTo string)
}

// SessionExpiredFunc adapts a function to SessionExpiredHandler
type SessionExpiredFunc func(ctx context.Context, redirectTo string)

// SessionExpired calls f
func (f SessionExpiredFunc) SessionExpired(ctx context.Context, redirectTo string) {
	f(ctx, redirectTo)
}

// refreshCoordinator lets many callers that hit 401 share one refresh call.
//
// The first caller to observe 401 while idle becomes the leader and performs
// the refresh. Callers arriving while it runs park on a buffered channel and
// receive the leader's outcome. generation counts settled refreshes so that a
// 401 belonging to a request sent before the last refresh settled reuses that
// outcome instead of starting a new refresh.
type refreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	generation uint64
	lastErr    error
	waiters    []chan error

	refresh   func(ctx context.Context) error
	expired   SessionExpiredHandler
	loginPath string
	logger    Logger
}

func newRefreshCoordinator(refresh func(ctx context.Context) error, expired SessionExpiredHandler, loginPath string, logger Logger) *refreshCoordinator {
	return &refreshCoordinator{
		refresh:   refresh,
		expired:   expired,
		loginPath: loginPath,
		logger:    logger,
	}
}

// currentGeneration is read before a request is sent and handed to await
// if that request comes back 401.
func (r *refreshCoordinator) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// await returns nil once the session has been renewed and the caller should
// replay its request, or the batch error when renewal failed.
func (r *refreshCoordinator) await(ctx context.Context, seen uint64) error {
	r.mu.Lock()

	if r.generation != seen {
		err := r.lastErr
		r.mu.Unlock()
		return err
	}

	if r.refreshing {
		ch := make(chan error, 1)
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.refreshing = true
	r.mu.Unlock()

	return r.lead(ctx)
}

// lead performs the single refresh call and settles every parked waiter.
func (r *refreshCoordinator) lead(ctx context.Context) error {
	// A cancelled leader must not fail the refresh for everyone queued behind it.
	refreshCtx := context.WithoutCancel(ctx)

	var batchErr error
	if err := r.refresh(refreshCtx); err != nil {
		batchErr = &Error{
			Code:    "SESSION_EXPIRED",
			Message: "session refresh failed",
			Err:     ErrSessionExpired,
		}
		if r.logger != nil {
			r.logger.Warn("Session refresh failed", "error", err)
		}
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	} else if r.logger != nil {
		r.logger.Debug("Session refreshed")
	}

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.refreshing = false
	r.generation++
	r.lastErr = batchErr
	r.mu.Unlock()

	for _, w := range waiters {
		w <- batchErr
	}

	if batchErr != nil {
		if r.logger != nil {
			r.logger.Info("Releasing queued requests after failed refresh", "waiters", len(waiters))
		}
		if r.expired != nil {
			go r.expired.SessionExpired(refreshCtx, r.loginPath)
		}
	}

	return batchErr
}

// state reports the refresh flag and queue length
func (r *refreshCoordinator) state() (refreshing bool, queued int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing, len(r.waiters)
}

// refreshSession issues POST /auth/refresh exactly once. The server rotates
// the session cookies, so a resent refresh would carry a spent token. Any 2xx
// counts as success and the rotated cookies are saved.
func (c *Client) refreshSession(ctx context.Context) error {
	resp, err := c.attempt(ctx, &Request{Method: http.MethodPost, Path: refreshPath, NoRetry: true})
	if err != nil {
		return errors.Wrap(err, "refresh request failed")
	}
	if !resp.OK() {
		return handleHTTPError(http.MethodPost, refreshPath, resp)
	}

	c.persistSession()
	return nil
}
