package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// maxErrorBodySize bounds how much of an error response body is read when
// looking for a server-provided detail message.
const maxErrorBodySize = 1 << 20 // 1MB

// RefreshFunc exchanges the refresh credential for a new access token.
// The refresh credential itself is an HTTP-only cookie carried by the
// gateway's cookie jar and is opaque to callers.
type RefreshFunc func(ctx context.Context) (string, error)

type refreshOutcome struct {
	token string
	err   error
}

// Gateway issues authenticated requests against the resume service.
//
// It attaches the current access token as a bearer credential and, on an
// authorization failure, runs the configured RefreshFunc exactly once no
// matter how many requests observe the failure concurrently: the first
// caller becomes the refresher, everyone else queues behind it and is
// retried with the token that refresh produced. A retried request is
// never refreshed a second time.
//
// A Gateway is constructed once per session and torn down with [Gateway.Close]
// on logout, which rejects any queued waiters.
type Gateway struct {
	baseURL string
	http    *http.Client
	refresh RefreshFunc

	mu         sync.Mutex
	token      string
	refreshing bool
	waiters    []chan refreshOutcome
	closed     bool
}

// NewGateway creates a gateway for the service at baseURL. refresh may be
// nil, in which case authorization failures are returned as-is.
func NewGateway(baseURL string, refresh RefreshFunc) *Gateway {
	jar, _ := cookiejar.New(nil)
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second, Jar: jar},
		refresh: refresh,
	}
}

// SetToken replaces the access token attached to subsequent requests.
func (g *Gateway) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

// Token returns the current access token, if any.
func (g *Gateway) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Close tears the gateway down. Queued refresh waiters are rejected and
// subsequent requests fail with [ErrGatewayClosed]. Intended to be called
// on logout.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.token = ""
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshOutcome{err: ErrGatewayClosed}
	}
}

// Do issues a JSON request and returns the raw response body. A nil body
// sends no payload. Authorization failures trigger the single-flight
// refresh-and-retry protocol when a RefreshFunc is configured.
func (g *Gateway) Do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	return g.do(ctx, method, path, body, true)
}

// DoWithoutRefresh is [Gateway.Do] with refresh handling disabled for this
// call; an authorization failure is returned to the caller unchanged.
func (g *Gateway) DoWithoutRefresh(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	return g.do(ctx, method, path, body, false)
}

// DoJSON issues a request and decodes the response body into out when out
// is non-nil.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := g.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body interface{}, allowRefresh bool) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrGatewayClosed
	}
	token := g.token
	g.mu.Unlock()

	data, err := g.doOnce(ctx, method, path, payload, token)
	if err == nil || !allowRefresh || g.refresh == nil || !IsAuthError(err) {
		return data, err
	}

	token, rerr := g.awaitToken(ctx)
	if rerr != nil {
		return nil, rerr
	}
	// Retry exactly once with the fresh token; the retry is not refreshable.
	return g.doOnce(ctx, method, path, payload, token)
}

// awaitToken obtains a fresh access token. The first caller during an
// expiry window performs the refresh; concurrent callers enqueue and wake
// with that refresh's outcome.
func (g *Gateway) awaitToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return "", ErrGatewayClosed
	}
	if g.refreshing {
		ch := make(chan refreshOutcome, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case out := <-ch:
			if out.err != nil {
				return "", out.err
			}
			if out.token == "" {
				return "", ErrAuthFailed
			}
			return out.token, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	token, err := g.refresh(ctx)
	out := refreshOutcome{token: token}
	if err != nil {
		out.err = fmt.Errorf("%w: %v", ErrAuthFailed, err)
	} else if token == "" {
		out.err = ErrAuthFailed
	}

	g.mu.Lock()
	if out.err == nil && !g.closed {
		g.token = token
	}
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	// Drain every request that was blocked on this refresh. Channels are
	// buffered, so stragglers that already gave up do not block the drain.
	for _, ch := range waiters {
		ch <- out
	}

	if out.err != nil {
		return "", out.err
	}
	return token, nil
}

func (g *Gateway) doOnce(ctx context.Context, method, path string, payload []byte, token string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The cap applies to error bodies only; a detail message never
		// needs more than this.
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data, resp.StatusCode),
		}
	}

	// Success bodies are read in full: downloads can exceed any
	// reasonable fixed cap.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// errorDetail pulls the server-provided message out of an error body,
// falling back to the HTTP status text.
func errorDetail(body []byte, statusCode int) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return http.StatusText(statusCode)
}
