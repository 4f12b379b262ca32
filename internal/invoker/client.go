// Package invoker is the HTTP client for the remote sandbox-execution
// service. It owns exactly one concern: send one opaque invocation and
// await its completion response.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jjs-dev/judge/internal/domain"
)

var (
	// ErrNoPoolConfigured is returned when the pool has no endpoints.
	ErrNoPoolConfigured = errors.New("invoker: no pools configured")
	// ErrInvocationIDNotNil is returned when the caller supplies a request
	// with a non-nil id; ids are assigned by the client, never the caller.
	ErrInvocationIDNotNil = errors.New("invoker: invocation id must be nil on submission")
)

// Pool is a set of invoker endpoints. The current design serves the first
// configured endpoint; multi-endpoint load balancing is left unimplemented.
type Pool struct {
	addrs []string
}

// NewPool builds a pool from a set of invoker base addresses.
func NewPool(addrs ...string) *Pool {
	return &Pool{addrs: addrs}
}

func (p *Pool) instance() (string, error) {
	if p == nil || len(p.addrs) == 0 {
		return "", ErrNoPoolConfigured
	}
	return p.addrs[0], nil
}

// Client sends invocations to a single pool over HTTP.
type Client struct {
	pool       *Pool
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (e.g. to change timeout
// or transport). The default client has a 30s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New constructs a Client over the given pool.
func New(pool *Pool, opts ...Option) *Client {
	c := &Client{
		pool:       pool,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends req to the pool's instance and returns its response. req.ID
// must be nil; Call assigns a fresh random id before submission.
func (c *Client) Call(ctx context.Context, req domain.InvokeRequest) (*domain.InvokeResponse, error) {
	if req.ID != nil {
		return nil, ErrInvocationIDNotNil
	}
	addr, err := c.pool.instance()
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	req.ID = &id

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("invoker: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/exec", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invoker: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("invoker: transport failure: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("invoker: non-successful status %d: %s", resp.StatusCode, string(respBody))
	}

	var out domain.InvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invoker: invalid response body: %w", err)
	}
	return &out, nil
}
