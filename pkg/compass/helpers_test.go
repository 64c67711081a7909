package compass

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of the Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*Response)
	return resp, args.Error(1)
}

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

// matchRequest matches a request by method and path
func matchRequest(method, path string) interface{} {
	return mock.MatchedBy(func(req *Request) bool {
		return req.Method == method && req.Path == path
	})
}

func newMockClient() (*Client, *MockTransport) {
	m := new(MockTransport)
	c := newClient(&ClientOptions{BaseURL: "https://api.test"}, m, nil)
	return c, m
}

// fakeBackend is a Transport with a session that can be expired. Requests
// to non-refresh paths answer 401 until the session is valid again.
type fakeBackend struct {
	mu         sync.Mutex
	authorized bool
	calls      map[string]int

	// refreshGate, when set, holds the refresh call until closed
	refreshGate chan struct{}
	// refreshStatus overrides the refresh answer; 0 means 200
	refreshStatus int
	// refreshErr fails the refresh at the network level
	refreshErr error
	// keepExpired leaves the session invalid after a successful refresh
	keepExpired bool
	// refreshCtxErr records ctx.Err() seen by the refresh call
	refreshCtxErr error

	// statuses forces an answer for a path
	statuses map[string]int
	// holds blocks a path after it is received until the channel is closed
	holds map[string]chan struct{}
	// arrived is signalled when a held path is received
	arrived chan string
}

func newFakeBackend(authorized bool) *fakeBackend {
	return &fakeBackend{
		authorized: authorized,
		calls:      make(map[string]int),
		statuses:   make(map[string]int),
		holds:      make(map[string]chan struct{}),
		arrived:    make(chan string, 16),
	}
}

func (b *fakeBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := req.Method + " " + req.Path

	b.mu.Lock()
	b.calls[key]++
	authorized := b.authorized
	status, forced := b.statuses[req.Path]
	hold := b.holds[req.Path]
	b.mu.Unlock()

	if req.Path == refreshPath {
		return b.refresh(ctx)
	}

	if hold != nil {
		b.arrived <- req.Path
		<-hold
	}

	if forced {
		return jsonResponse(status, `{"error":"forced"}`), nil
	}
	if !authorized {
		return jsonResponse(http.StatusUnauthorized, `{"error":"unauthorized"}`), nil
	}
	return jsonResponse(http.StatusOK, fmt.Sprintf(`{"path":%q}`, req.Path)), nil
}

func (b *fakeBackend) refresh(ctx context.Context) (*Response, error) {
	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshCtxErr = ctx.Err()

	if b.refreshErr != nil {
		return nil, b.refreshErr
	}
	if b.refreshStatus != 0 {
		return jsonResponse(b.refreshStatus, `{"error":"invalid refresh token"}`), nil
	}
	if !b.keepExpired {
		b.authorized = true
	}
	return jsonResponse(http.StatusOK, `{"ok":true}`), nil
}

func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authorized = false
}

func (b *fakeBackend) count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

func (b *fakeBackend) refreshes() int {
	return b.count(http.MethodPost, refreshPath)
}
